package build

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"text/template"

	sprig "github.com/go-task/slim-sprig/v3"

	"xrb/config"
	"xrb/terms"
)

// Values is a struct that holds variables we make available for template expansion
type Values struct {
	Context  string
	ASIN     string
	GUID     string
	Database string
	Source   string
}

func newValues(name config.TemplateFieldName, id terms.Identity, src string) Values {
	return Values{
		Context:  string(name),
		ASIN:     id.ASIN,
		GUID:     id.GUID,
		Database: id.Database,
		Source:   strings.TrimSuffix(filepath.Base(src), filepath.Ext(src)),
	}
}

func expandTemplate(name config.TemplateFieldName, field string, values Values) (string, error) {
	tmpl, err := template.New(string(name)).Funcs(sprig.FuncMap()).Option("missingkey=error").Parse(field)
	if err != nil {
		return "", fmt.Errorf("unable to parse template field %s: %w", name, err)
	}

	buf := new(bytes.Buffer)
	if err := tmpl.Execute(buf, values); err != nil {
		return "", err
	}
	return buf.String(), nil
}
