// Package factory provides a small generic registry used to instantiate modules
// from configuration. Modules are defined by a type string and a map of raw
// settings. Factories decode the settings into typed structs and return the
// concrete implementation.
//
// Example usage:
//
//	reg := factory.NewRegistry[telemetry.Source]()
//	reg.Register("live", func(conf map[string]any) (telemetry.Source, error) {
//	    var c struct{ URL string `json:"url"` }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return NewLiveFeed(c.URL), nil
//	})
//	src, err := reg.Create(factory.ModuleConfig{Type: "live", Conf: map[string]any{"url": "http://gateway:8000"}})
package factory
