// compileinfoprint is imported for the side effect of logging the build's
// compileinfo at startup.
package compileinfoprint

import (
	"log"

	"github.com/carbocation/optmap/compileinfo"
)

func init() {
	log.Println("optmap:", compileinfo.Get())
}
