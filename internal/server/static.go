package server

import (
	_ "embed"
	"net/http"
)

//go:embed openapi.yaml
var openAPISpec []byte

const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>siwed</title>
<style>body{font-family:monospace;margin:2rem;max-width:42rem}code{background:#eee;padding:0 .2rem}</style>
</head>
<body>
<h1>siwed</h1>
<p>Sign-In with Ethereum message validation daemon.</p>
<ul>
<li><code>POST /validate</code> validate a message (set <code>Accept: application/x-ndjson</code> to stream diagnostics)</li>
<li><code>POST /auto-fix</code> repair fixable findings, optionally dry-run</li>
<li><code>POST /messages</code> upload a message text, returns an artifact id</li>
<li><code>GET /artifacts</code> list stored artifacts</li>
<li><code>GET /artifacts/{id}</code> download a stored artifact</li>
<li><code>GET /profiles</code> list validation profiles</li>
<li><code>GET /samples</code> built-in sample messages</li>
<li><code>GET /openapi.yaml</code> API description</li>
<li><code>GET /healthz</code> liveness probe</li>
</ul>
</body>
</html>
`

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(indexHTML))
}

func (s *Server) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(openAPISpec)
}
