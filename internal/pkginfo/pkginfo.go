// Package pkginfo reads project metadata from package.json and renders the
// banner placed in front of minified files.
package pkginfo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/tidwall/gjson"
)

// ErrInvalidPackage is returned when package.json is not valid JSON.
var ErrInvalidPackage = errors.New("invalid package.json")

// Info is the subset of package.json used by the build.
type Info struct {
	Name     string
	Version  string
	Homepage string
	Author   string
	Licenses []string
}

// Reader reads workspace files by name.
type Reader interface {
	Read(ctx context.Context, name string) ([]byte, error)
}

// Load reads the package.json called name from r.
func Load(ctx context.Context, r Reader, name string) (*Info, error) {
	data, err := r.Read(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("reading package info: %w", err)
	}
	return Parse(data)
}

// Parse extracts Info from package.json contents. The author may be a
// string or an object with a name; licenses may be the legacy array of
// {type, url} objects or a single license string.
func Parse(data []byte) (*Info, error) {
	if !gjson.ValidBytes(data) {
		return nil, ErrInvalidPackage
	}
	doc := gjson.ParseBytes(data)

	info := &Info{
		Name:     doc.Get("name").String(),
		Version:  doc.Get("version").String(),
		Homepage: doc.Get("homepage").String(),
	}

	author := doc.Get("author")
	if author.IsObject() {
		info.Author = author.Get("name").String()
	} else {
		info.Author = author.String()
	}

	for _, l := range doc.Get("licenses").Array() {
		if t := l.Get("type").String(); t != "" {
			info.Licenses = append(info.Licenses, t)
		} else if l.Type == gjson.String {
			info.Licenses = append(info.Licenses, l.String())
		}
	}
	if len(info.Licenses) == 0 {
		if l := doc.Get("license").String(); l != "" {
			info.Licenses = []string{l}
		}
	}
	return info, nil
}

// bannerData is the value the banner template is executed against.
type bannerData struct {
	Pkg      *Info
	Today    string
	Year     int
	Licenses string
}

// Banner renders tmpl for info at time now. The template sees .Pkg,
// .Today (yyyy-mm-dd), .Year and .Licenses (comma separated).
func Banner(tmpl string, info *Info, now time.Time) (string, error) {
	if info == nil {
		info = &Info{}
	}
	t, err := template.New("banner").Option("missingkey=error").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("parsing banner: %w", err)
	}
	var buf bytes.Buffer
	err = t.Execute(&buf, bannerData{
		Pkg:      info,
		Today:    now.Format("2006-01-02"),
		Year:     now.Year(),
		Licenses: strings.Join(info.Licenses, ", "),
	})
	if err != nil {
		return "", fmt.Errorf("rendering banner: %w", err)
	}
	return buf.String(), nil
}
