package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/spf13/viper"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// InitMongo connects the document-oriented movement log store.
func InitMongo() (*mongo.Database, error) {
	viper.SetDefault("mongo.host", "localhost")
	viper.SetDefault("mongo.port", "27017")
	viper.SetDefault("mongo.database", "backoffice")

	uri := fmt.Sprintf("mongodb://%s:%s",
		viper.GetString("mongo.host"), viper.GetString("mongo.port"))
	if user := viper.GetString("mongo.user"); user != "" {
		uri = fmt.Sprintf("mongodb://%s:%s@%s:%s",
			user, viper.GetString("mongo.password"),
			viper.GetString("mongo.host"), viper.GetString("mongo.port"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("error connecting to mongo: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("error pinging mongo: %w", err)
	}

	log.Println("Mongo connection established")
	return client.Database(viper.GetString("mongo.database")), nil
}

// InitMongoDatabase initializes the movement store or exits
func InitMongoDatabase() *mongo.Database {
	db, err := InitMongo()
	if err != nil {
		log.Fatalf("Failed to initialize mongo: %v", err)
	}
	return db
}
