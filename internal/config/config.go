// Package config defines the necessary types to configure the application.
// An example config file config.yaml is provided in the repository.
package config

import (
	"time"

	"github.com/openkcm/common-sdk/pkg/commoncfg"
)

type Config struct {
	commoncfg.BaseConfig `mapstructure:",squash" yaml:",inline"`

	HTTP HTTPServer `yaml:"http"`

	Database    Database    `yaml:"database"`
	ValKey      ValKey      `yaml:"valkey"`
	Migrate     Migrate     `yaml:"migrate"`
	API         API         `yaml:"api"`
	Bridge      Bridge      `yaml:"bridge"`
	Housekeeper Housekeeper `yaml:"housekeeper"`
}

type HTTPServer struct {
	Address         string        `yaml:"address" default:":8080"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" default:"5s"`
}

type Database struct {
	Name     string              `yaml:"name"`
	Port     string              `yaml:"port"`
	Host     commoncfg.SourceRef `yaml:"host"`
	User     commoncfg.SourceRef `yaml:"user"`
	Password commoncfg.SourceRef `yaml:"password"`
}

type ValKey struct {
	Host     commoncfg.SourceRef `yaml:"host"`
	User     commoncfg.SourceRef `yaml:"user"`
	Password commoncfg.SourceRef `yaml:"password"`
	Prefix   string              `yaml:"prefix"`
}

type Migrate struct {
	Source string `yaml:"source" default:"file://./sql"`
}

// API configures the bearer-gated document endpoints.
type API struct {
	// BearerToken guards every document endpoint. The service refuses to
	// start without it.
	BearerToken    commoncfg.SourceRef `yaml:"bearerToken"`
	MaxUploadBytes int64               `yaml:"maxUploadBytes" default:"10485760"`
	// RequestTimeout bounds every datastore call made on behalf of a request.
	RequestTimeout time.Duration `yaml:"requestTimeout" default:"30s"`
}

// Bridge configures the authorization bridge to the identity provider.
type Bridge struct {
	Provider Provider `yaml:"provider"`

	// PremiumTier is the subscription tier required to receive a code.
	PremiumTier string `yaml:"premiumTier" default:"Elite"`
	// FallbackURL is where members without the required tier are sent.
	FallbackURL string `yaml:"fallbackURL"`
	// IssuedCode is the code handed to entitled callers, later presented
	// back at the authorization endpoint.
	IssuedCode   commoncfg.SourceRef `yaml:"issuedCode"`
	ClientSecret commoncfg.SourceRef `yaml:"clientSecret"`

	FlowDuration time.Duration  `yaml:"flowDuration" default:"30m"`
	CSRFSecret   string         `yaml:"csrfSecret"`
	FlowCookie   CookieTemplate `yaml:"flowCookie"`
}

// Provider holds the identity provider's endpoints.
type Provider struct {
	LoginURL        string              `yaml:"loginURL"`
	TokenURL        string              `yaml:"tokenURL"`
	SubscriptionURL string              `yaml:"subscriptionURL"`
	ClientID        commoncfg.SourceRef `yaml:"clientID"`
	Timeout         time.Duration       `yaml:"timeout" default:"10s"`
	SubscriptionTTL time.Duration       `yaml:"subscriptionTTL" default:"5m"`
}

type Housekeeper struct {
	TriggerInterval time.Duration `yaml:"triggerInterval" default:"5m"`
}

type CookieSameSite string

const (
	CookieSameSiteNone   CookieSameSite = "none"
	CookieSameSiteLax    CookieSameSite = "lax"
	CookieSameSiteStrict CookieSameSite = "strict"
)

// CookieTemplate describes the cookie carrying the flow identifier.
type CookieTemplate struct {
	Name     string         `yaml:"name" default:"flow_id"`
	MaxAge   int            `yaml:"maxAge" default:"1800"`
	Path     string         `yaml:"path" default:"/"`
	Domain   string         `yaml:"domain"`
	Secure   bool           `yaml:"secure" default:"true"`
	HTTPOnly bool           `yaml:"httpOnly" default:"true"`
	SameSite CookieSameSite `yaml:"sameSite" default:"lax"`
}
