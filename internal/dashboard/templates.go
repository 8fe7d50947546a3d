package dashboard

import (
	"bytes"
	"html/template"
	"net/http"
	"strings"
)

var funcMap = template.FuncMap{
	"upper": strings.ToUpper,
}

// fragmentHTML holds the pieces that are rendered both inside full pages
// and on their own for HTMX swaps and SSE events.
const fragmentHTML = `
{{define "companyList"}}
<ul class="space-y-2">
    {{range .Companies}}
    <li class="bg-gray-900 border border-gray-700 rounded-lg px-4 py-3">Company Name: {{.Name}}</li>
    {{else}}
    <li class="text-gray-500">No companies available</li>
    {{end}}
</ul>
{{end}}

{{define "banner"}}
<div id="permission">
{{if eq .Status "pending"}}{{with .Prompt}}
<div class="bg-gray-900 border border-yellow-700 rounded-lg p-6 mb-6">
    <div class="flex justify-between items-center">
        <div>
            <div class="text-yellow-400 text-xs font-bold mb-2">NOTIFICATIONS</div>
            <div class="text-gray-300">{{.Message}}</div>
        </div>
        <div class="flex space-x-2">
            <button hx-post="/permission/grant" hx-target="#permission" hx-swap="outerHTML"
                    class="px-4 py-2 bg-green-700 hover:bg-green-600 text-white rounded text-sm font-bold">Allow</button>
            <button hx-post="/permission/deny" hx-target="#permission" hx-swap="outerHTML"
                    class="px-4 py-2 bg-red-700 hover:bg-red-600 text-white rounded text-sm font-bold">Don't Allow</button>
        </div>
    </div>
</div>
{{end}}{{end}}
</div>
{{end}}

{{define "result"}}
{{if .Error}}
<div class="text-red-300 text-sm">{{.Error}}</div>
{{else}}
<div class="text-green-300 text-sm">Company added: {{.Company.Name}}</div>
{{end}}
{{end}}

{{define "toast"}}
<div class="bg-gray-900 border border-blue-900 rounded-lg p-4 shadow">
    <div class="text-blue-300 text-xs font-bold">{{upper .Title}}</div>
    <div class="text-gray-300 text-sm">{{.Body}}</div>
</div>
{{end}}
`

var fragments = template.Must(template.New("fragments").Funcs(funcMap).Parse(fragmentHTML))

var pageTmpls = map[string]*template.Template{
	"companies": template.Must(template.Must(fragments.Clone()).Parse(navHTML + companiesHTML)),
	"policy":    template.Must(template.Must(fragments.Clone()).Parse(navHTML + policyHTML)),
}

func renderPage(w http.ResponseWriter, name string, data map[string]any) {
	tmpl, ok := pageTmpls[name]
	if !ok {
		http.Error(w, "unknown page: "+name, http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		http.Error(w, "template error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	buf.WriteTo(w)
}

func renderFragment(w http.ResponseWriter, status int, name string, data any) {
	html, err := fragment(name, data)
	if err != nil {
		http.Error(w, "template error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte(html))
}

func fragment(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := fragments.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const navHTML = `{{define "nav"}}
<nav class="bg-gray-900 border-b border-gray-700 px-6 py-4">
    <div class="flex items-center justify-between max-w-7xl mx-auto">
        <div class="flex items-center space-x-2">
            <span class="text-xl font-bold text-white">Companybook</span>
        </div>
        <div class="flex space-x-4">
            <a href="/" class="px-3 py-2 rounded hover:bg-gray-800 {{if eq .Page "companies"}}bg-gray-800 text-white{{else}}text-gray-400{{end}}">Companies</a>
            <a href="/policy" class="px-3 py-2 rounded hover:bg-gray-800 {{if eq .Page "policy"}}bg-gray-800 text-white{{else}}text-gray-400{{end}}">Policy</a>
        </div>
    </div>
</nav>
{{end}}`

const headHTML = `<!DOCTYPE html>
<html lang="en" class="dark">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Companybook</title>
    <script src="https://cdn.tailwindcss.com"></script>
    <script src="https://unpkg.com/htmx.org@2.0.4"></script>
    <script src="https://unpkg.com/htmx-ext-sse@2.2.2/sse.js"></script>
    <style>body { background-color: #0f172a; color: #e2e8f0; }</style>
</head>
<body class="min-h-screen">
{{template "nav" .}}
<main class="max-w-3xl mx-auto px-6 py-8">`

const footHTML = `</main>
<div id="toasts" class="fixed bottom-4 right-4 w-80 space-y-2"
     hx-ext="sse" sse-connect="/notifications/stream" sse-swap="notification" hx-swap="afterbegin"></div>
</body>
</html>`

const companiesHTML = headHTML + `
{{template "banner" .Permission}}
<form hx-post="/companies" hx-target="#form-result" hx-swap="innerHTML"
      hx-on::after-request="if(event.detail.successful) this.reset()"
      action="/companies" method="post" class="mb-6 space-y-2">
    <label for="name" class="block text-gray-400 text-sm">Company Name</label>
    <input id="name" name="name" type="text" required autocomplete="off"
           class="w-full bg-gray-900 border border-gray-700 rounded px-3 py-2 text-white">
    <button type="submit" class="w-full px-4 py-2 bg-blue-700 hover:bg-blue-600 text-white rounded font-bold">Add Company</button>
    <div id="form-result"></div>
</form>
{{if .Show}}
<a href="/" class="block w-full text-center px-4 py-2 mb-6 bg-gray-800 hover:bg-gray-700 rounded font-bold">Hide Companies</a>
<div id="companies" hx-ext="sse" sse-connect="/companies/stream" sse-swap="companies">
{{template "companyList" .Snapshot}}
</div>
{{else}}
<a href="/?show=1" class="block w-full text-center px-4 py-2 mb-6 bg-gray-800 hover:bg-gray-700 rounded font-bold">Show Companies</a>
{{end}}
` + footHTML

const policyHTML = headHTML + `
<h1 class="text-2xl font-bold mb-6">Active Naming Policy</h1>
<div class="text-gray-400 text-sm mb-4">
    {{if .PolicyPath}}Loaded from {{.PolicyPath}}{{else}}Built-in defaults{{end}}
    <span class="mx-2">|</span> Notification journal: {{.JournalDir}}
</div>
{{if .OPAPolicy}}
<div class="text-gray-400 text-sm mb-4">Evaluated by Rego policy {{.OPAPolicy}}</div>
{{end}}
<div class="bg-gray-900 border border-gray-700 rounded-lg p-6">
    <pre class="font-mono text-sm text-gray-300 whitespace-pre-wrap">{{.PolicyYAML}}</pre>
</div>
` + footHTML
