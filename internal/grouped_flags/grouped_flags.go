// Package grouped_flags wraps github.com/jnovack/flag so that the --help
// output is organized in named groups. The jnovack fork also resolves every
// flag from an environment variable (GOTUS_UPLOAD_DIR for -upload-dir etc),
// which is how the server is usually configured in containers.
package grouped_flags

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/jnovack/flag"
)

type group struct {
	name string
	fs   *flag.FlagSet
}

// FlagGroupSet collects flags in named groups while parsing them through a
// single combined flag set.
type FlagGroupSet struct {
	groups   []group
	combined *flag.FlagSet
}

func NewFlagGroupSet(errorHandling flag.ErrorHandling) *FlagGroupSet {
	f := &FlagGroupSet{
		combined: flag.NewFlagSet(os.Args[0], errorHandling),
	}
	f.combined.Usage = f.Usage
	return f
}

// AddGroup registers the flags defined by register under the given group
// name. The flags are merged into the combined set used for parsing.
func (f *FlagGroupSet) AddGroup(name string, register func(*flag.FlagSet)) {
	fs := flag.NewFlagSet("", flag.PanicOnError)
	register(fs)

	fs.VisitAll(func(fl *flag.Flag) {
		f.combined.Var(fl.Value, fl.Name, fl.Usage)
	})

	f.groups = append(f.groups, group{name, fs})
}

func (f *FlagGroupSet) Parse() error {
	return f.combined.Parse(os.Args[1:])
}

func (f *FlagGroupSet) SetOutput(w io.Writer) {
	f.combined.SetOutput(w)
}

func (f *FlagGroupSet) Usage() {
	w := f.combined.Output()
	fmt.Fprintf(w, "Usage of %s:\n\n", f.combined.Name())

	for _, g := range f.groups {
		fmt.Fprintf(w, "%s:\n", g.name)

		buf := new(bytes.Buffer)
		g.fs.SetOutput(buf)
		g.fs.PrintDefaults()
		fmt.Fprintln(w, buf.String())
	}
}
