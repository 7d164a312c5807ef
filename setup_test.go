package upload // import "blitznote.com/src/png.upload"

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestAllowList(t *testing.T) {
	Convey("An AllowList", t, func() {
		a := NewAllowList("PNG", " .Jpg ", ".png", "", ".")

		Convey("normalizes its elements", func() {
			So(a.Extensions(), ShouldResemble, []string{".jpg", ".png"})
			So(a.Len(), ShouldEqual, 2)
			So(a.String(), ShouldEqual, ".jpg,.png")
		})

		Convey("ignores case", func() {
			So(a.Contains(".png"), ShouldBeTrue)
			So(a.Contains(".PNG"), ShouldBeTrue)
			So(a.Contains(".pNg"), ShouldBeTrue)
			So(a.Contains(".gif"), ShouldBeFalse)
			So(a.Contains("png"), ShouldBeFalse)
			So(a.Contains(""), ShouldBeFalse)
		})

		Convey("can be empty", func() {
			So(NewAllowList().Contains(".png"), ShouldBeFalse)
			So(AllowList{}.Contains(".png"), ShouldBeFalse)
		})
	})
}

func TestListenAddress(t *testing.T) {
	env := func(m map[string]string) func(string) (string, bool) {
		return func(key string) (string, bool) {
			v, ok := m[key]
			return v, ok
		}
	}

	Convey("ListenAddress", t, FailureContinues, func() {
		Convey("defaults to port 3000", func() {
			addr, err := ListenAddress(env(nil))
			So(err, ShouldBeNil)
			So(addr, ShouldEqual, ":3000")

			addr, err = ListenAddress(env(map[string]string{"PORT": ""}))
			So(err, ShouldBeNil)
			So(addr, ShouldEqual, ":3000")
		})

		Convey("uses PORT", func() {
			addr, err := ListenAddress(env(map[string]string{"PORT": "8080"}))
			So(err, ShouldBeNil)
			So(addr, ShouldEqual, ":8080")
		})

		Convey("rejects invalid ports", func() {
			for _, port := range []string{"http", "0", "65536", "-1", "80:80"} {
				_, err := ListenAddress(env(map[string]string{"PORT": port}))
				So(err, ShouldNotBeNil)
			}
		})
	})
}

func TestConfiguration_Validate(t *testing.T) {
	Convey("The default configuration", t, func() {
		c := NewDefaultConfiguration("/srv/www")

		Convey("is valid", func() {
			So(c.Validate(), ShouldBeNil)
			So(c.UploadsDir, ShouldEqual, filepath.Join("/srv/www", "uploads"))
			So(c.StaticDir, ShouldEqual, filepath.Join("/srv/www", "public"))
			So(c.FormField, ShouldEqual, "myfile")
			So(c.AllowedExtensions.Extensions(), ShouldResemble, []string{".png"})
		})

		Convey("becomes invalid", func() {
			Convey("without an uploads directory", func() {
				c.UploadsDir = ""
				So(c.Validate(), ShouldNotBeNil)
			})
			Convey("without a staging directory", func() {
				c.StagingDir = ""
				So(c.Validate(), ShouldNotBeNil)
			})
			Convey("with the staging directory within the uploads directory", func() {
				c.StagingDir = filepath.Join(c.UploadsDir, "tmp")
				So(c.Validate(), ShouldNotBeNil)
				c.StagingDir = c.UploadsDir
				So(c.Validate(), ShouldNotBeNil)
			})
			Convey("without a form field", func() {
				c.FormField = ""
				So(c.Validate(), ShouldNotBeNil)
			})
			Convey("with a negative size limit", func() {
				c.MaxTransactionSize = -1
				So(c.Validate(), ShouldNotBeNil)
			})
		})

		Convey("allows a staging directory next to the uploads", func() {
			c.StagingDir = c.UploadsDir + "-staging"
			So(c.Validate(), ShouldBeNil)
		})
	})
}

func TestConfiguration_Unveil(t *testing.T) {
	if runtime.GOOS == "openbsd" {
		t.Skip("unveil would lock this very test process in")
	}
	scratchDir, err := ioutil.TempDir("", "unveil-test")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(scratchDir)

	Convey("Unveil, where the OS has no such call,", t, func() {
		c := NewDefaultConfiguration(scratchDir)
		So(c.Unveil(), ShouldBeNil)

		Convey("creates no directories ahead of the first upload", func() {
			for _, dir := range []string{c.UploadsDir, c.StagingDir, c.StaticDir} {
				_, err := os.Stat(dir)
				So(os.IsNotExist(err), ShouldBeTrue)
			}
		})
	})
}
