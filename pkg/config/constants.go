package config

const EnvPrefix = "PETSHOP"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv = "PETSHOP_APP_ENV"
	EnvPort   = "PETSHOP_APP_PORT"

	EnvDBDSN  = "PETSHOP_DB_DSN"
	EnvDBHost = "PETSHOP_DB_HOST"
	EnvDBUser = "PETSHOP_DB_USER"
	EnvDBName = "PETSHOP_DB_NAME"

	EnvRedisURL  = "PETSHOP_REDIS_URL"
	EnvJWTSecret = "PETSHOP_JWT_SECRET"
	EnvJWTIssuer = "PETSHOP_JWT_ISSUER"

	EnvCheckoutIsolation     = "PETSHOP_CHECKOUT_ISOLATION"
	EnvCheckoutDefaultSeller = "PETSHOP_CHECKOUT_DEFAULT_SELLER_ID"
	EnvPubSubOrdersTopic     = "PETSHOP_PUBSUB_ORDERS_TOPIC"
	EnvGCPProjectID          = "PETSHOP_GCP_PROJECT_ID"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
