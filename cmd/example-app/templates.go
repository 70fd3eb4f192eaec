package main

import (
	"encoding/json"
	"html/template"
	"log"
	"net/http"

	"github.com/mediamonks/oidcflow/credentials"
)

var indexTmpl = template.Must(template.New("index.html").Parse(`<!DOCTYPE html>
<html lang="en">
  <head>
    <meta charset="utf-8">
    <title>oidcflow example</title>
    <style>body { font-family: sans-serif; padding: 40px; }</style>
  </head>
  <body>
    <h1>oidcflow example</h1>
    <p>Current state: <strong>{{ .Phase }}</strong></p>
    <form action="/login" method="post">
      <button type="submit">Sign in</button>
    </form>
  </body>
</html>`))

type indexTmplData struct {
	Phase string
}

func renderIndex(w http.ResponseWriter, st interface{ String() string }) {
	renderTemplate(w, indexTmpl, indexTmplData{Phase: st.String()})
}

type tokenTmplData struct {
	AccessToken  string
	RefreshToken string
	IDTokenRaw   string
	Claims       string
}

var tokenTmpl = template.Must(template.New("token.html").Parse(`<!DOCTYPE html>
<html lang="en">
  <head>
    <meta charset="utf-8">
    <title>oidcflow example</title>
    <style>
      body { font-family: sans-serif; padding: 40px; }
      pre { white-space: pre-wrap; word-wrap: break-word; background: #f4f4f4; padding: 12px; }
    </style>
  </head>
  <body>
    <h1>Authorized</h1>
    <h3>Access Token</h3>
    <pre>{{ .AccessToken }}</pre>
    {{ if .IDTokenRaw }}
    <h3>ID Token Claims</h3>
    <pre>{{ .Claims }}</pre>
    {{ end }}
    {{ if .RefreshToken }}
    <h3>Refresh Token</h3>
    <pre>{{ .RefreshToken }}</pre>
    {{ end }}
  </body>
</html>`))

func renderToken(w http.ResponseWriter, creds credentials.Credentials) {
	data := tokenTmplData{
		AccessToken:  creds.AccessToken,
		RefreshToken: creds.RefreshToken,
	}
	if creds.IDToken != nil {
		data.IDTokenRaw = creds.IDToken.String()
		claims := map[string]interface{}{
			"subject": creds.IDToken.Subject,
		}
		if name, ok := creds.IDToken.Name(); ok {
			claims["name"] = name
		}
		if email, ok := creds.IDToken.Email(); ok {
			claims["email"] = email
		}
		b, _ := json.MarshalIndent(claims, "", "  ")
		data.Claims = string(b)
	}
	renderTemplate(w, tokenTmpl, data)
}

func renderTemplate(w http.ResponseWriter, tmpl *template.Template, data interface{}) {
	if err := tmpl.Execute(w, data); err != nil {
		log.Printf("rendering template %s: %v", tmpl.Name(), err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}
