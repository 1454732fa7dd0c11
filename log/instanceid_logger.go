package log

import (
	"github.com/0xERR0R/resolvd/instanceid"
	log "github.com/sirupsen/logrus"
)

// instanceIdLogger stamps each entry with the id of this process instance
// so that aggregated logs of multiple resolvers stay distinguishable.
type instanceIdLogger struct {
	formatter log.Formatter
}

func (l instanceIdLogger) Format(entry *log.Entry) ([]byte, error) {
	entry.Data["instanceId"] = instanceid.String()

	return l.formatter.Format(entry)
}
