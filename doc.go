// Package upload implements a small HTTP service that hands out an upload form,
// accepts exactly one file per request, and keeps it if its extension is allowed.
//
// Uploaded files are streamed to a staging directory first.
// Only after the filename has been vetted and its extension has been found
// in the allow-list is the file moved into the uploads directory,
// keeping the name the client gave it. Everything else is discarded.
//
// Any other GET request is answered from a directory with static assets,
// such as the stylesheet the form links to.
//
// The handler is meant to be used in Go's own http server:
//  cfg := upload.NewDefaultConfiguration(".")
//  router, _ := upload.NewRouter(cfg)
//  http.ListenAndServe(":3000", router)
//
// … or with Caddy, if built with tag 'caddyserver1.0':
//  pngupload /upload {
//      to      /var/www/uploads
//      allow   .png
//  }
//
// Uploading using 'curl':
//  curl -F myfile=@photo.png http://127.0.0.1:3000/upload
package upload // import "blitznote.com/src/png.upload"
