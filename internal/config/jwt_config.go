package config

import "strconv"

// JwtConfig is the configuration surface consumed by the token codec,
// validator, and issuance manager. Implementations must be immutable
// values; components receive them once at construction.
type JwtConfig interface {
	GetIssuer() string
	GetAudience() string
	GetSecret() string
	GetSigningAlgorithm() string
	GetAccessTokenExpireDays() int
	GetRefreshTokenExpireMonths() int
	ValidateIssuer() bool
	ValidateAudience() bool
	ValidateIssuerSigningKey() bool
	ValidateLifetime() bool
}

// Jwt is a plain value implementation of JwtConfig. NewJwt fills it from
// the environment; tests construct it directly.
type Jwt struct {
	Issuer                   string
	Audience                 string
	Secret                   string
	Algorithm                string
	AccessTokenExpireDays    int
	RefreshTokenExpireMonths int
	IssuerValidation         bool
	AudienceValidation       bool
	SigningKeyValidation     bool
	LifetimeValidation       bool
}

var _ JwtConfig = Jwt{}

func NewJwt() Jwt {
	return Jwt{
		Issuer:                   GetEnv("JWT_ISSUER", "go-credential-service"),
		Audience:                 GetEnv("JWT_AUDIENCE", "api"),
		Secret:                   GetEnv("JWT_SECRET", ""),
		Algorithm:                GetEnv("JWT_ALGORITHM", "HS256"),
		AccessTokenExpireDays:    getEnvInt("JWT_ACCESS_TOKEN_EXPIRE_DAYS", 1),
		RefreshTokenExpireMonths: getEnvInt("JWT_REFRESH_TOKEN_EXPIRE_MONTHS", 3),
		IssuerValidation:         getEnvBool("JWT_VALIDATE_ISSUER", true),
		AudienceValidation:       getEnvBool("JWT_VALIDATE_AUDIENCE", true),
		SigningKeyValidation:     getEnvBool("JWT_VALIDATE_SIGNING_KEY", true),
		LifetimeValidation:       getEnvBool("JWT_VALIDATE_LIFETIME", true),
	}
}

func (j Jwt) GetIssuer() string                { return j.Issuer }
func (j Jwt) GetAudience() string              { return j.Audience }
func (j Jwt) GetSecret() string                { return j.Secret }
func (j Jwt) GetSigningAlgorithm() string      { return j.Algorithm }
func (j Jwt) GetAccessTokenExpireDays() int    { return j.AccessTokenExpireDays }
func (j Jwt) GetRefreshTokenExpireMonths() int { return j.RefreshTokenExpireMonths }
func (j Jwt) ValidateIssuer() bool             { return j.IssuerValidation }
func (j Jwt) ValidateAudience() bool           { return j.AudienceValidation }
func (j Jwt) ValidateIssuerSigningKey() bool   { return j.SigningKeyValidation }
func (j Jwt) ValidateLifetime() bool           { return j.LifetimeValidation }

func getEnvInt(envVar string, defaultValue int) int {
	value, err := strconv.Atoi(GetEnv(envVar, ""))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvBool(envVar string, defaultValue bool) bool {
	value, err := strconv.ParseBool(GetEnv(envVar, ""))
	if err != nil {
		return defaultValue
	}
	return value
}
