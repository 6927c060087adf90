// Package mongo implements task.Store using the official MongoDB driver.
// Suitable for distributed deployments requiring horizontal scaling and
// flexible schema evolution.
//
// The caller owns the *mongo.Client lifecycle -- mongo never closes it.
// Pass the database handle through the constructor:
//
//	import (
//	    mongod "go.mongodb.org/mongo-driver/v2/mongo"
//	    "github.com/xraph/delayq/store/mongo"
//	)
//
//	client, _ := mongod.Connect(options.Client().ApplyURI(uri))
//	store := mongo.New(client.Database("delayq"))
//	store.Migrate(ctx)
//
// The conditional ready→running start is an UpdateOne whose filter pins
// the stored state, which MongoDB applies atomically per document.
package mongo
