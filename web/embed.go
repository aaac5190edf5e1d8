package web

import "embed"

// StaticFS embeds the browser client (index.html, app.js, app.css).
//
//go:embed static/*
var StaticFS embed.FS
