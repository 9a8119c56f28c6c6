package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Config is read with the MONGO_ prefix and only used when STORE_BACKEND=mongo.
type Config struct {
	URI            string `envconfig:"MONGO_URI" default:"mongodb://localhost:27017"`
	Database       string `envconfig:"MONGO_DATABASE" default:"commerce"`
	User           string `envconfig:"MONGO_USER"`
	Password       string `envconfig:"MONGO_PASSWORD"`
	ConnectTimeout int    `envconfig:"MONGO_CONNECT_TIMEOUT" default:"10"`
}

// New connects, pings and returns the database handle together with its client.
func (c *Config) New(ctx context.Context) (*mongo.Client, *mongo.Database, error) {
	opts := options.Client().
		ApplyURI(c.URI).
		SetConnectTimeout(time.Duration(c.ConnectTimeout) * time.Second)
	if c.User != "" {
		opts.SetAuth(options.Credential{
			Username:   c.User,
			Password:   c.Password,
			AuthSource: c.Database,
		})
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, time.Duration(c.ConnectTimeout)*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, err
	}

	return client, client.Database(c.Database), nil
}
