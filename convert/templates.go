package convert

import (
	"bytes"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"text/template"

	sprig "github.com/go-task/slim-sprig/v3"

	"stylemig/common"
)

// Values is a struct that holds variables we make available for template expansion
type Values struct {
	Context string
	// Dir is slash separated directory of the source relative to input root.
	Dir  string
	Name string
	Ext  string
	Lang string
}

func newValues(context, src string) Values {
	src = filepath.ToSlash(src)
	ext := path.Ext(src)
	lang, _ := common.SourceLangFromPath(src)
	return Values{
		Context: context,
		Dir:     path.Dir(src),
		Name:    strings.TrimSuffix(path.Base(src), ext),
		Ext:     ext,
		Lang:    lang.String(),
	}
}

func expandTemplate(name, field, src string) (string, error) {
	funcMap := sprig.FuncMap()

	tmpl, err := template.New(name).Funcs(funcMap).Parse(field)
	if err != nil {
		return "", fmt.Errorf("unable to parse template field %s: %w", name, err)
	}

	buf := new(bytes.Buffer)
	if err := tmpl.Execute(buf, newValues(name, src)); err != nil {
		return "", err
	}
	return buf.String(), nil
}
