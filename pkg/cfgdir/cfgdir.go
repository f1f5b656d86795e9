package cfgdir

import (
	"os"
	"path/filepath"

	homedir "github.com/mitchellh/go-homedir"
	log "github.com/sirupsen/logrus"
)

// ConfigDir is the directory that holds the user's gridpro config.
var ConfigDir string

func init() {
	var err error
	ConfigDir, err = homedir.Expand("~/.gridpro")
	if err != nil {
		log.WithError(err).Fatal("can't find home directory")
	}

	if dir, ok := os.LookupEnv("GRIDPRO_CONFIG_DIR"); ok && dir != "" {
		ConfigDir = dir
	}
}

func Expand(filename string) string {
	return filepath.Join(ConfigDir, filename)
}

// ConfigFile is the default path of the config file.
func ConfigFile() string {
	return Expand("config.yaml")
}
