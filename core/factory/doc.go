// Package factory provides a small generic registry used to instantiate modules
// from configuration. Advisory services and metrics sinks are defined by a type string and a map of raw
// settings. Factories decode the settings into typed structs and return the
// concrete implementation.
//
// Example usage:
//
//	reg := factory.NewRegistry[advisory.Service]()
//	reg.Register("http", func(conf map[string]any) (advisory.Service, error) {
//	    var c struct{ BaseURL string `json:"base_url"` }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return newClient(c.BaseURL), nil
//	})
//	svc, err := reg.Create(factory.ModuleConfig{Type: "http", Conf: map[string]any{"base_url": "http://localhost:8000"}})
package factory
