package endpoints

import (
	"encoding/json"
	"net/http"

	"github.com/golang/glog"
)

const versionEndpointValueNotSet = "not-set"

// LoadedProvider is a delegate which loaded successfully at startup.
type LoadedProvider struct {
	Name   string `json:"name"`
	Role   string `json:"role"`
	LibURI string `json:"libUri,omitempty"`
}

// VersionInfo identifies a running mediator: its configured id, the commit it was built from
// and the delegates which made it through loading.
type VersionInfo struct {
	ID        string
	Revision  string
	Providers []LoadedProvider
}

// NewVersionEndpoint serves the VersionInfo as JSON. The body is rendered once, at startup.
func NewVersionEndpoint(info VersionInfo) http.HandlerFunc {
	response, err := prepareVersionEndpointResponse(info)
	if err != nil {
		glog.Fatalf("error creating /version endpoint response: %v", err)
	}

	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(response)
	}
}

func prepareVersionEndpointResponse(info VersionInfo) (json.RawMessage, error) {
	if info.ID == "" {
		info.ID = versionEndpointValueNotSet
	}
	if info.Revision == "" {
		info.Revision = versionEndpointValueNotSet
	}
	if info.Providers == nil {
		info.Providers = []LoadedProvider{}
	}

	return json.Marshal(struct {
		ID        string           `json:"id"`
		Revision  string           `json:"revision"`
		Providers []LoadedProvider `json:"providers"`
	}{
		ID:        info.ID,
		Revision:  info.Revision,
		Providers: info.Providers,
	})
}
