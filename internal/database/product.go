package repository

import (
	"furnishop/entity"
	"go.mongodb.org/mongo-driver/bson"
)

func (m *MongoDB) GetProduct(id string) (*entity.Product, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(productsCollection)

	var product entity.Product
	err = collection.FindOne(m.ctx, bson.D{{"_id", id}}).Decode(&product)
	if err != nil {
		return nil, m.findError(err)
	}
	return &product, nil
}
