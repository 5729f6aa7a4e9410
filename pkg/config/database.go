package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DB holds the database connections. Redis is nil when REDIS_URL is unset.
type DB struct {
	Postgres *gorm.DB
	Mongo    *mongo.Client
	Redis    *redis.Client

	logger *zap.Logger
}

// InitDB opens and pings every configured store.
func InitDB(ctx context.Context, cfg *Config, logger *zap.Logger) (*DB, error) {
	if cfg.PostgresConnStr == "" {
		return nil, errors.New("POSTGRES_CONN_STR environment variable not set")
	}
	if cfg.MongoURI == "" {
		return nil, errors.New("MONGO_URI environment variable not set")
	}

	db := &DB{logger: logger}
	var err error
	if db.Postgres, err = initPostgres(cfg.PostgresConnStr); err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	logger.Info("connected to PostgreSQL")

	if db.Mongo, err = initMongo(ctx, cfg.MongoURI); err != nil {
		db.CloseDB()
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	logger.Info("connected to MongoDB", zap.String("database", cfg.MongoDatabase))

	if cfg.RedisURL != "" {
		if db.Redis, err = initRedis(ctx, cfg.RedisURL); err != nil {
			db.CloseDB()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		logger.Info("connected to Redis")
	}
	return db, nil
}

func initPostgres(connStr string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(connStr), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err = sqlDB.Ping(); err != nil {
		return nil, err
	}
	return db, nil
}

func initMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err = client.Ping(ctx, nil); err != nil {
		return nil, err
	}
	return client, nil
}

func initRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// CloseDB closes the database connections
func (db *DB) CloseDB() {
	if db.Postgres != nil {
		sqlDB, err := db.Postgres.DB()
		if err != nil {
			db.logger.Error("error getting SQL DB from GORM", zap.Error(err))
		} else if err := sqlDB.Close(); err != nil {
			db.logger.Error("error closing PostgreSQL connection", zap.Error(err))
		} else {
			db.logger.Info("PostgreSQL connection closed")
		}
	}

	if db.Mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.Mongo.Disconnect(ctx); err != nil {
			db.logger.Error("error closing MongoDB connection", zap.Error(err))
		} else {
			db.logger.Info("MongoDB connection closed")
		}
	}

	if db.Redis != nil {
		if err := db.Redis.Close(); err != nil {
			db.logger.Error("error closing Redis connection", zap.Error(err))
		} else {
			db.logger.Info("Redis connection closed")
		}
	}
}
