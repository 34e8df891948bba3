// Package schema publishes JSON schemas of the documents the toolchain accepts.
package schema

import (
	"encoding/json"
	"sort"

	"github.com/invopop/jsonschema"

	"github.com/rxtech-lab/argo-dsl/internal/queue"
	"github.com/rxtech-lab/argo-dsl/internal/server"
	"github.com/rxtech-lab/argo-dsl/internal/tradeconfig"
	"github.com/rxtech-lab/argo-dsl/pkg/errors"
	"github.com/rxtech-lab/argo-dsl/pkg/marketdata"
)

// ToJSONSchema converts a struct to a JSON schema
func ToJSONSchema[T any](t T) (string, error) {
	r := new(jsonschema.Reflector)
	r.DoNotReference = true
	schema := r.Reflect(t)

	jsonSchemaBytes, err := json.Marshal(schema)
	if err != nil {
		return "", err
	}

	return string(jsonSchemaBytes), nil
}

var documents = map[string]func() (string, error){
	"config":  func() (string, error) { return ToJSONSchema(tradeconfig.Record{}) },
	"data":    func() (string, error) { return ToJSONSchema(marketdata.Request{}) },
	"request": func() (string, error) { return ToJSONSchema(server.BacktestRequest{}) },
	"job":     func() (string, error) { return ToJSONSchema(queue.Job{}) },
}

// Names lists the documents a schema is available for.
func Names() []string {
	names := make([]string, 0, len(documents))
	for name := range documents {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Get returns the schema of the named document.
func Get(name string) (string, error) {
	build, ok := documents[name]
	if !ok {
		return "", errors.Newf(errors.ErrCodeInvalidArgument, "no schema named %s, expected one of %v", name, Names())
	}

	return build()
}
