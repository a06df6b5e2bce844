package config

type Config interface {
	EnvConfig
	JwtConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetDataFolder() string
	GetStorageDriver() string
	GetRedisAddr() string
	GetEnv() string
}

type mainConfig struct {
	EnvVars
	Jwt
}

func New() Config {
	return mainConfig{
		Jwt: NewJwt(),
	}
}
