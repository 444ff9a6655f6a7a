package folio

import "embed"

// EmbeddedAssets contains static assets shipped with the framework:
// folio.css, the default stylesheet served at /public/folio.css.
//
//go:embed embedded/*
var EmbeddedAssets embed.FS
