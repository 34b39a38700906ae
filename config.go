package orbitdeterminator

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

var (
	cfgLoaded = false
	cfg       = _odconfig{}
)

// _odconfig is a "hidden" struct, just use `config`
type _odconfig struct {
	VSOP87Dir string
}

// config returns the orbitdeterminator configuration, loading the conf.toml
// from the directory in the ODCONF environment variable on first use.
func config() _odconfig {
	if cfgLoaded {
		return cfg
	}
	confPath := os.Getenv("ODCONF")
	if confPath == "" {
		panic("environment variable `ODCONF` is missing or empty")
	}
	viper.SetConfigName("conf")
	viper.AddConfigPath(confPath)
	if err := viper.ReadInConfig(); err != nil {
		panic(fmt.Errorf("%s/conf.toml not found", confPath))
	}
	cfg = _odconfig{VSOP87Dir: viper.GetString("VSOP87.directory")}
	cfgLoaded = true
	return cfg
}
