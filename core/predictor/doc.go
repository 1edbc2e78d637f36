// Package predictor defines the capability every pipeline stage invokes and
// the decoders that turn a cached model artifact into one.
//
// Artifacts are JSON documents whose "format" field selects the decoder:
//
//	{"format": "linear",   "inputs": 3, "weights": [...], "bias": 0.1}
//	{"format": "logistic", "inputs": 3, "weights": [...], "bias": -2, "threshold": 0.5}
//	{"format": "forest",   "inputs": 4, "trees": [{"nodes": [...]}, ...]}
//
// Forest nodes are stored flat; a node with a negative feature index is a leaf
// and yields its value, otherwise the walk goes left when x[feature] <= threshold.
package predictor
