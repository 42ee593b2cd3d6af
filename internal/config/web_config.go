package config

type WebConfig interface {
	GetAppDomain() string
}

type Web struct {
	AppDomain string `env:"APP_DOMAIN" envDefault:"example.com"`
}

var _ WebConfig = Web{}

func (w Web) GetAppDomain() string {
	return w.AppDomain
}
