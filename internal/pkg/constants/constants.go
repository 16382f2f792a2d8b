package constants

const (
	ViperDatabaseURLKey = "database.url"
	ViperServerAddrKey  = "server.addr"
	ViperSecretKey      = "auth.secret"
	ViperAllowOrigins   = "server.allow_origins"

	ViperBakeOutputDirKey   = "bake.output_dir"
	ViperBakeBaseURLKey     = "bake.base_url"
	ViperBakeConcurrencyKey = "bake.concurrency"

	ViperDenormalizeAwaitKey      = "denormalize.await"
	ViperDenormalizeYearAfterKey  = "denormalize.year_after"
	ViperDenormalizeYearBeforeKey = "denormalize.year_before"

	ViperExplorersDirKey           = "explorers.dir"
	ViperExplorersRedirectsFileKey = "explorers.redirects_file"
	ViperCountriesFileKey          = "countries.file"

	ViperLogLevelKey       = "log.level"
	ViperLogDevelopmentKey = "log.development"
)

const (
	CookieKeyAuthToken = "sessionid"
	CtxKeyUserID       = "user_id"
)
