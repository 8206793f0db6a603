package index

import (
	"github.com/go-logr/logr"

	"github.com/dcgrounds/bptree/pkg/common"
	"github.com/dcgrounds/bptree/pkg/log"
)

// Options configures a new Index. There are no files, no environment
// variables, no network endpoints to configure — just a small struct
// literal passed to New.
type Options struct {
	// PageSize overrides the 4096-byte page budget used to derive
	// max_size for leaf and internal pages. Tests that want to force
	// splits with only a handful of keys set this small; zero means
	// common.PageSize.
	PageSize int

	// Logger receives structural (split/merge/collapse) and page-table
	// events. Defaults to a discarding logger.
	Logger logr.Logger
}

func (o Options) pageSize() int {
	if o.PageSize > 0 {
		return o.PageSize
	}
	return common.PageSize
}

func (o Options) logger() logr.Logger {
	if o.Logger == (logr.Logger{}) {
		return log.Discard()
	}
	return o.Logger
}
