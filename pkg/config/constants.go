package config

const (
	EnvPrefix = "TROVEMART"

	AppEnvDev  = "dev"
	AppEnvProd = "production"
)

const (
	EnvAppEnv     = "TROVEMART_APP_ENV"
	EnvPort       = "TROVEMART_APP_PORT"
	EnvDBDSN      = "TROVEMART_DB_DSN"
	EnvDBHost     = "TROVEMART_DB_HOST"
	EnvDBUser     = "TROVEMART_DB_USER"
	EnvDBName     = "TROVEMART_DB_NAME"
	EnvRedisURL   = "TROVEMART_REDIS_URL"
	EnvJWTSecret  = "TROVEMART_JWT_SECRET"
	EnvJWTIssuer  = "TROVEMART_JWT_ISSUER"
	EnvJWTExpMins = "TROVEMART_JWT_EXPIRATION_MINUTES"

	EnvRazorpayKeyID         = "TROVEMART_RAZORPAY_KEY_ID"
	EnvRazorpayKeySecret     = "TROVEMART_RAZORPAY_KEY_SECRET"
	EnvRazorpayWebhookSecret = "TROVEMART_RAZORPAY_WEBHOOK_SECRET"
	EnvDelhiveryAPIKey       = "TROVEMART_DELHIVERY_API_KEY"
	EnvPickupPincode         = "TROVEMART_DELHIVERY_PICKUP_PINCODE"

	EnvGCPProjectID       = "TROVEMART_GCP_PROJECT_ID"
	EnvPubSubOrdersTopic  = "TROVEMART_PUBSUB_ORDERS_TOPIC"
	EnvPubSubOrdersSub    = "TROVEMART_PUBSUB_ORDERS_SUBSCRIPTION"
	EnvPubSubPaymentTopic = "TROVEMART_PUBSUB_PAYMENTS_TOPIC"
	EnvPubSubPaymentSub   = "TROVEMART_PUBSUB_PAYMENTS_SUBSCRIPTION"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
