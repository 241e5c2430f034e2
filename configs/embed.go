// Package configs provides the embedded configuration template for
// studyrag. Embedding at build time keeps `studyrag init` working in
// every distribution, source builds and binary releases alike.
//
// To change the template, edit project-config.example.yaml and
// rebuild.
package configs

import _ "embed"

// ProjectConfigTemplate is the starter configuration written by
// `studyrag init` as .studyrag.yaml in the working directory. It
// carries every setting at its default with a short comment, so a
// config file is only needed to change something.
//
// Credentials never live here: OPENAI_API_KEY and QDRANT_API_KEY are
// read from the environment only.
//
//go:embed project-config.example.yaml
var ProjectConfigTemplate string
