package errx

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

// WrapRedis maps Redis errors to AppError; redis.Nil becomes a not-found error.
func WrapRedis(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, redis.Nil) {
		return New(errors.Join(err, ErrNotFound), http.StatusNotFound, NotFoundMessage)
	}
	return New(err, http.StatusBadGateway, RedisErrorMessage)
}

// WrapSQL maps database/sql errors to AppError; sql.ErrNoRows becomes a not-found error.
func WrapSQL(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return New(errors.Join(err, ErrNotFound), http.StatusNotFound, NotFoundMessage)
	}
	return New(err, http.StatusInternalServerError, StorageErrorMessage)
}

// WrapMongo maps MongoDB driver errors to AppError; ErrNoDocuments becomes a not-found error.
func WrapMongo(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return New(errors.Join(err, ErrNotFound), http.StatusNotFound, NotFoundMessage)
	}
	return New(err, http.StatusInternalServerError, StorageErrorMessage)
}
