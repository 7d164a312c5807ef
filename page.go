package upload // import "blitznote.com/src/png.upload"

import (
	"bytes"
	"html/template"
	"net/http"
	"strings"
)

const contentTypeHTML = "text/html; charset=utf-8"

var pages = template.Must(template.New("form").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>{{.Kind}} File Upload</title>
  <link rel="stylesheet" href="/style.css" />
</head>
<body>
  <h1>Upload a {{.Kind}} File</h1>
  <form action="/upload" method="post" enctype="multipart/form-data">
    <input type="file" name="{{.Field}}" accept="{{.Accept}}" required />
    <button type="submit">Upload</button>
  </form>
</body>
</html>
{{define "success"}}<h1>File uploaded successfully!</h1>
<p>Saved as: {{.Name}}</p>
<a href="/">Upload another {{.Kind}} file</a>
{{end}}
{{define "failure"}}<h1>{{.Title}}</h1>{{if .Detail}}<p>{{.Detail}}</p>{{end}}
{{end}}`))

// kindOf is how we name the accepted files to humans, like "PNG" or "JPG/PNG".
func kindOf(allowed AllowList) string {
	exts := allowed.Extensions()
	for i := range exts {
		exts[i] = strings.ToUpper(strings.TrimPrefix(exts[i], "."))
	}
	return strings.Join(exts, "/")
}

func render(w http.ResponseWriter, code int, name string, data interface{}) {
	var buf bytes.Buffer
	if err := pages.ExecuteTemplate(&buf, name, data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentTypeHTML)
	w.WriteHeader(code)
	buf.WriteTo(w)
}

// ServeForm returns the handler for the page with the upload form.
func ServeForm(config *Configuration) http.HandlerFunc {
	data := struct {
		Kind, Field, Accept string
	}{
		Kind:   kindOf(config.AllowedExtensions),
		Field:  config.FormField,
		Accept: config.AllowedExtensions.String(),
	}
	return func(w http.ResponseWriter, _ *http.Request) {
		render(w, http.StatusOK, "form", data)
	}
}

func writeSuccess(w http.ResponseWriter, fileName string, allowed AllowList) {
	render(w, http.StatusOK, "success", struct {
		Name, Kind string
	}{fileName, kindOf(allowed)})
}

// writeFailure renders 'err' as HTML fragment.
func writeFailure(w http.ResponseWriter, err error) {
	var title, detail string
	switch e := err.(type) {
	case fileTypeError:
		title = e.Error()
		detail = "Only " + kindOf(e.allowed) + " files are allowed."
	case decodeError:
		title, detail = "Upload error", clientMessage(e)
	case storageError:
		title, detail = "Error saving file", clientMessage(e)
	default:
		title = err.Error()
	}
	render(w, responseCode(err), "failure", struct {
		Title, Detail string
	}{title, detail})
}
