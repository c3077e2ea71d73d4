// Package api embeds the OpenAPI document and registers it with swag so
// it can be served and used for request validation.
package api

import (
	_ "embed"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/swaggo/swag"
)

//go:embed openapi.yaml
var Spec []byte

type document struct {
	once sync.Once
	json string
}

// ReadDoc renders the YAML document as JSON on first use.
func (d *document) ReadDoc() string {
	d.once.Do(func() {
		doc, err := openapi3.NewLoader().LoadFromData(Spec)
		if err != nil {
			d.json = "{}"
			return
		}
		b, err := json.Marshal(doc)
		if err != nil {
			d.json = "{}"
			return
		}
		d.json = string(b)
	})
	return d.json
}

func init() {
	swag.Register(swag.Name, &document{})
}

// DocsHandler serves the registered document.
func DocsHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		doc, err := swag.ReadDoc()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(doc))
	})
}
