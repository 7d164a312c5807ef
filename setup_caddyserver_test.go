// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build caddyserver1.0
// +build caddyserver1.0

package upload

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mholt/caddy"
	"github.com/mholt/caddy/caddyhttp/httpserver"
	. "github.com/smartystreets/goconvey/convey"
	"golang.org/x/text/unicode/norm"
)

func TestSetupParse(t *testing.T) {
	scratchDir := filepath.Join(os.TempDir(), "pngupload-caddy-test") // gets created on first use

	tests := []struct {
		config       string
		expectedErr  error
		expectedConf HandlerConfiguration
	}{
		{
			`pngupload / { to "` + scratchDir + `" }`,
			nil,
			HandlerConfiguration{
				PathScopes: []string{"/"},
				Scope: map[string]*Configuration{
					"/": {
						UploadsDir:        scratchDir,
						StagingDir:        os.TempDir(),
						AllowedExtensions: NewAllowList(".png"),
						FormField:         "myfile",
					},
				},
			},
		},
		{
			`pngupload /`,
			errors.New("Testfile:1 - Error during parsing: The destination path 'to' is missing"),
			HandlerConfiguration{},
		},
		{
			`pngupload /upload {
				to "` + scratchDir + `"
				staging /var/tmp
				allow .PNG jpg
				field picture
				max_transaction_size 65536
			}`,
			nil,
			HandlerConfiguration{
				PathScopes: []string{"/upload"},
				Scope: map[string]*Configuration{
					"/upload": {
						UploadsDir:         scratchDir,
						StagingDir:         "/var/tmp",
						AllowedExtensions:  NewAllowList(".png", ".jpg"),
						FormField:          "picture",
						MaxTransactionSize: 65536,
					},
				},
			},
		},
		{
			`pngupload /upload {
				to "` + scratchDir + `"
				filenames_form NFC
			}`,
			nil,
			HandlerConfiguration{
				PathScopes: []string{"/upload"},
				Scope: map[string]*Configuration{
					"/upload": {
						UploadsDir:        scratchDir,
						StagingDir:        os.TempDir(),
						AllowedExtensions: NewAllowList(".png"),
						FormField:         "myfile",
						UnicodeForm:       &struct{ Use norm.Form }{Use: norm.NFC},
					},
				},
			},
		},
		{
			`pngupload /upload {
				to "` + scratchDir + `"
				filenames_form NFKC
			}`,
			errors.New("Testfile:3 - Error during parsing: Wrong argument count or unexpected line ending after 'NFKC'"),
			HandlerConfiguration{},
		},
		{
			`pngupload /upload {
				to "` + scratchDir + `"
				max_transaction_size -1
			}`,
			errors.New("Testfile:3 - Error during parsing: Wrong argument count or unexpected line ending after '-1'"),
			HandlerConfiguration{},
		},
	}

	Convey("Setup of the controller", t, func() {
		for idx := range tests {
			test := tests[idx]
			c := caddy.NewTestController("http", test.config)
			err := Setup(c)
			if test.expectedErr != nil {
				So(err, ShouldResemble, test.expectedErr)
				continue
			}
			So(err, ShouldBeNil)

			mids := httpserver.GetConfig(c).Middleware()
			So(len(mids), ShouldEqual, 1)

			i := mids[0](httpserver.EmptyNext)
			myHandler, ok := i.(*CaddyHandler)
			So(ok, ShouldBeTrue)

			// strip loggers (cannot compare them)
			for _, scopeConf := range myHandler.Config.Scope {
				So(scopeConf.Logger, ShouldNotBeNil)
				scopeConf.Logger = nil
			}

			So(myHandler.Config, ShouldResemble, test.expectedConf)
		}
	})
}

func TestCaddyHandler(t *testing.T) {
	scratchDir, err := os.MkdirTemp("", "caddy-upload-test")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(scratchDir)
	uploadsDir := filepath.Join(scratchDir, "uploads")

	c := caddy.NewTestController("http", `pngupload /upload {
		to "`+uploadsDir+`"
		staging "`+filepath.Join(scratchDir, "staging")+`"
	}`)
	if err := Setup(c); err != nil {
		t.Fatal(err)
	}
	h := httpserver.GetConfig(c).Middleware()[0](teapotNext{})

	Convey("The Caddy middleware", t, func() {
		Convey("passes GET requests on", func() {
			req := httptest.NewRequest("GET", "/upload", nil)
			code, err := h.ServeHTTP(httptest.NewRecorder(), req)
			So(err, ShouldBeNil)
			So(code, ShouldEqual, http.StatusTeapot)
		})

		Convey("passes POSTs outside of its scope on", func() {
			req := httptest.NewRequest("POST", "/elsewhere", strings.NewReader(""))
			code, _ := h.ServeHTTP(httptest.NewRecorder(), req)
			So(code, ShouldEqual, http.StatusTeapot)
		})

		Convey("accepts files in its scope", func() {
			body, ctype := payloadWithFile("myfile", "caddy.png", []byte("PNGDATA"))
			req := httptest.NewRequest("POST", "/upload", body)
			req.Header.Set("Content-Type", ctype)
			w := httptest.NewRecorder()

			code, err := h.ServeHTTP(w, req)
			So(err, ShouldBeNil)
			So(code, ShouldEqual, 0)
			So(w.Code, ShouldEqual, http.StatusOK)
			compareContents(filepath.Join(uploadsDir, "caddy.png"), []byte("PNGDATA"))
		})

		Convey("writes its own error pages", func() {
			body, ctype := payloadWithFile("myfile", "caddy.exe", []byte("MZ"))
			req := httptest.NewRequest("POST", "/upload", body)
			req.Header.Set("Content-Type", ctype)
			w := httptest.NewRecorder()

			code, err := h.ServeHTTP(w, req)
			So(err, ShouldNotBeNil)
			So(code, ShouldEqual, 0)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

// teapotNext stands in for any handler further down Caddy's chain.
type teapotNext struct{}

func (teapotNext) ServeHTTP(w http.ResponseWriter, _ *http.Request) (int, error) {
	return http.StatusTeapot, nil
}
