// Package config reads settings from an optional config file and DATABAKER_* environment
// variables into the global viper instance.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/ougirez/databaker/internal/domain"
	"github.com/ougirez/databaker/internal/pkg/constants"
	"github.com/spf13/viper"
)

const EnvPrefix = "DATABAKER"

type Config struct {
	DatabaseURL  string   `validate:"required"`
	ServerAddr   string   `validate:"required"`
	Secret       string
	AllowOrigins []string `validate:"dive,url"`

	Bake        Bake
	Denormalize Denormalize

	ExplorersDir  string
	RedirectsFile string
	CountriesFile string

	LogLevel       string `validate:"oneof=debug info warn error"`
	LogDevelopment bool
}

type Bake struct {
	OutputDir   string `validate:"required"`
	BaseURL     string
	Concurrency int `validate:"min=1,max=64"`
}

type Denormalize struct {
	Await      bool
	YearAfter  int
	YearBefore int `validate:"gtfield=YearAfter"`
}

func (d Denormalize) Window() domain.YearWindow {
	return domain.YearWindow{After: d.YearAfter, Before: d.YearBefore}
}

func setDefaults() {
	viper.SetDefault(constants.ViperServerAddrKey, ":8080")
	viper.SetDefault(constants.ViperAllowOrigins, []string{"http://localhost:3000"})
	viper.SetDefault(constants.ViperBakeOutputDirKey, "bakedSite")
	viper.SetDefault(constants.ViperBakeBaseURLKey, "")
	viper.SetDefault(constants.ViperBakeConcurrencyKey, 1)
	viper.SetDefault(constants.ViperDenormalizeAwaitKey, true)
	viper.SetDefault(constants.ViperDenormalizeYearAfterKey, 2010)
	viper.SetDefault(constants.ViperDenormalizeYearBeforeKey, 2020)
	viper.SetDefault(constants.ViperExplorersDirKey, "explorers")
	viper.SetDefault(constants.ViperExplorersRedirectsFileKey, "")
	viper.SetDefault(constants.ViperCountriesFileKey, "")
	viper.SetDefault(constants.ViperLogLevelKey, "info")
	viper.SetDefault(constants.ViperLogDevelopmentKey, false)
}

// Load reads path (when set) and the environment. DATABAKER_DATABASE_URL overrides database.url.
func Load(path string) (*Config, error) {
	setDefaults()
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if path != "" {
		viper.SetConfigFile(path)
		if err := viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("viper.ReadInConfig: %w", err)
		}
	}

	cfg := &Config{
		DatabaseURL:  viper.GetString(constants.ViperDatabaseURLKey),
		ServerAddr:   viper.GetString(constants.ViperServerAddrKey),
		Secret:       viper.GetString(constants.ViperSecretKey),
		AllowOrigins: viper.GetStringSlice(constants.ViperAllowOrigins),
		Bake: Bake{
			OutputDir:   viper.GetString(constants.ViperBakeOutputDirKey),
			BaseURL:     viper.GetString(constants.ViperBakeBaseURLKey),
			Concurrency: viper.GetInt(constants.ViperBakeConcurrencyKey),
		},
		Denormalize: Denormalize{
			Await:      viper.GetBool(constants.ViperDenormalizeAwaitKey),
			YearAfter:  viper.GetInt(constants.ViperDenormalizeYearAfterKey),
			YearBefore: viper.GetInt(constants.ViperDenormalizeYearBeforeKey),
		},
		ExplorersDir:   viper.GetString(constants.ViperExplorersDirKey),
		RedirectsFile:  viper.GetString(constants.ViperExplorersRedirectsFileKey),
		CountriesFile:  viper.GetString(constants.ViperCountriesFileKey),
		LogLevel:       viper.GetString(constants.ViperLogLevelKey),
		LogDevelopment: viper.GetBool(constants.ViperLogDevelopmentKey),
	}

	if err := validator.New().Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return nil, fmt.Errorf("invalid configuration: %s", describe(verrs))
		}
		return nil, fmt.Errorf("validator.Struct: %w", err)
	}
	return cfg, nil
}

func describe(verrs validator.ValidationErrors) string {
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
	}
	return strings.Join(msgs, "; ")
}
