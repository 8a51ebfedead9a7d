package config

import (
	"bytes"
	_ "embed"
	"os"
	"text/template"

	cmtconfig "github.com/cometbft/cometbft/config"
)

var appTemplate *template.Template

func init() {
	var err error
	if appTemplate, err = template.New("appConfigTemplate").Parse(appConfigTemplate); err != nil {
		panic(err)
	}
}

// WriteConfigFile writes the cometbft sections with cometbft's own writer and
// appends the [app] section.
func WriteConfigFile(configFilePath string, c *Config) error {
	cmtconfig.WriteConfigFile(configFilePath, c.Config)

	var buffer bytes.Buffer
	if err := appTemplate.Execute(&buffer, c.App); err != nil {
		return err
	}
	f, err := os.OpenFile(configFilePath, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write(buffer.Bytes())
	return err
}

// Note: any changes to the comments/variables/mapstructure
// must be reflected in AppConfig in config/config.go.
//
//go:embed app.toml.tpl
var appConfigTemplate string
