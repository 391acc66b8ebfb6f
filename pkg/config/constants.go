package config

const EnvPrefix = "BAZAAR"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "BAZAAR_APP_ENV"
	EnvPort     = "BAZAAR_APP_PORT"
	EnvLogLevel = "BAZAAR_LOG_LEVEL"

	EnvDBDSN  = "BAZAAR_DB_DSN"
	EnvDBHost = "BAZAAR_DB_HOST"
	EnvDBUser = "BAZAAR_DB_USER"
	EnvDBName = "BAZAAR_DB_NAME"

	EnvRedisURL = "BAZAAR_REDIS_URL"

	EnvMongoURI      = "BAZAAR_MONGO_URI"
	EnvMongoDatabase = "BAZAAR_MONGO_DATABASE"

	EnvJWTSecret  = "BAZAAR_JWT_SECRET"
	EnvJWTIssuer  = "BAZAAR_JWT_ISSUER"
	EnvJWTExpMins = "BAZAAR_JWT_EXPIRATION_MINUTES"

	EnvGCPProjectID = "BAZAAR_GCP_PROJECT_ID"

	EnvPubSubOrdersTopic    = "BAZAAR_PUBSUB_ORDERS_TOPIC"
	EnvPubSubReviewsTopic   = "BAZAAR_PUBSUB_REVIEWS_TOPIC"
	EnvPubSubInventoryTopic = "BAZAAR_PUBSUB_INVENTORY_TOPIC"
	EnvPubSubOrdersSub      = "BAZAAR_PUBSUB_ORDERS_SUBSCRIPTION"
	EnvPubSubReviewsSub     = "BAZAAR_PUBSUB_REVIEWS_SUBSCRIPTION"
	EnvPubSubInventorySub   = "BAZAAR_PUBSUB_INVENTORY_SUBSCRIPTION"

	EnvLowStockThreshold   = "BAZAAR_LOW_STOCK_THRESHOLD"
	EnvOrderNumberAttempts = "BAZAAR_ORDER_NUMBER_ATTEMPTS"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
