package api

import (
	"path"

	"github.com/muurk/monitorminer/internal/protocol"
)

// Landing pages per network mode.
const (
	IndexPage = "index.html"
	SetupPage = "setup_wifi.html"
)

// fallbackSetupPage is served in provisioning mode when the web directory
// has no setup page, so a device with a wiped asset partition can still be
// given credentials.
const fallbackSetupPage = `<!DOCTYPE html>
<html><head><meta charset="utf-8"><meta name="viewport" content="width=device-width">
<title>Monitor Miner Setup</title></head>
<body><h1>Monitor Miner Setup</h1>
<form id="f"><input name="ssid" placeholder="SSID" required>
<input name="password" type="password" placeholder="Password">
<button>Save</button></form><pre id="o"></pre>
<script>
document.getElementById('f').onsubmit=async function(e){e.preventDefault();
var d=Object.fromEntries(new FormData(e.target));
var r=await fetch('/api/wifi/config',{method:'POST',headers:{'Content-Type':'application/json'},body:JSON.stringify(d)});
document.getElementById('o').textContent=await r.text();};
</script></body></html>
`

func (a *API) landing(req *protocol.Request) (*protocol.Response, error) {
	page := IndexPage
	if a.deps.Identity.IsProvisioning() {
		page = SetupPage
	}
	resp := a.serveAsset(page, req)
	if resp.Status == 404 && page == SetupPage {
		return protocol.Build(200, protocol.ContentTypeHTML, []byte(fallbackSetupPage)), nil
	}
	return resp, nil
}

func (a *API) prefixedAsset(prefix string) func(*protocol.Request) (*protocol.Response, error) {
	return func(req *protocol.Request) (*protocol.Response, error) {
		return a.serveAsset(prefix+"/"+req.Param("file"), req), nil
	}
}

// rootAsset serves top-level files. Only names with an extension are assets;
// anything else at the root is an unknown route.
func (a *API) rootAsset(req *protocol.Request) (*protocol.Response, error) {
	name := req.Param("file")
	if path.Ext(name) == "" {
		return protocol.Error(404, "Not found"), nil
	}
	return a.serveAsset(name, req), nil
}

func (a *API) serveAsset(name string, req *protocol.Request) *protocol.Response {
	if a.deps.Assets == nil {
		return protocol.Error(404, "File not found")
	}
	return a.deps.Assets.Serve(name, req.AcceptsGzip())
}
