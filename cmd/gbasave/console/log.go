package console

import (
	"fmt"
	"io"
	"os"
)

const PictoDisk = "💾"
const PictoFinish = "🏁"
const PictoStop = "🚫"
const PictoChip = "🔎"

var writer io.Writer

var Trace bool

func init() {
	writer = os.Stdout
}

func Debugf(msg string, args ...interface{}) {
	if Trace {
		_, _ = fmt.Fprintf(writer, "%s %s\n", White("[DEBUG]"), fmt.Sprintf(msg, args...))
	}
}

func PInfof(picto, msg string, args ...interface{}) {
	_, _ = fmt.Fprintf(writer, "%s %s\n", picto, fmt.Sprintf(msg, args...))
}
