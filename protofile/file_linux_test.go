package protofile // import "blitznote.com/src/png.upload/protofile"

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"sync"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestIntentNewTmpfile_Concurrently(t *testing.T) {
	scratchDir, err := ioutil.TempDir("", "protofile-linux-test")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(scratchDir)

	Convey("Concurrent writers", t, func() {
		Convey("can run into a missing directory, which takes the fallback path", func() {
			var wg sync.WaitGroup
			errs := make([]error, 8)
			for i := range errs {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					// ENOENT is what older kernels report for O_TMPFILE, too.
					_, errs[i] = IntentNew(filepath.Join(scratchDir, "missing"), tempFileName())
				}(i)
			}
			wg.Wait()

			for _, err := range errs {
				So(err, ShouldNotBeNil)
			}
			tmpfileUnknown.Store(false)
		})

		Convey("persist their files after the fallback has been chosen", func() {
			tmpfileUnknown.Store(true)
			defer tmpfileUnknown.Store(false)

			var wg sync.WaitGroup
			names := make([]string, 8)
			errs := make([]error, len(names))
			for i := range names {
				names[i] = tempFileName()
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					f, err := IntentNew(scratchDir, names[i])
					if err == nil {
						_, err = f.Write([]byte(names[i]))
					}
					if err == nil {
						err = f.Persist()
					}
					errs[i] = err
				}(i)
			}
			wg.Wait()

			for i, name := range names {
				So(errs[i], ShouldBeNil)
				contents, err := ioutil.ReadFile(filepath.Join(scratchDir, name))
				So(err, ShouldBeNil)
				So(string(contents), ShouldEqual, name)
			}
		})
	})
}
