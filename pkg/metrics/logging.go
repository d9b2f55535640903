package metrics

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/sirupsen/logrus"
)

// LogFormatter wraps a logrus.Formatter and forwards every entry, including
// its fields, to New Relic log forwarding. Entries carrying a transaction in
// their context are attached to that transaction.
type LogFormatter struct {
	app  *newrelic.Application
	next logrus.Formatter
}

// NewLogFormatter returns a LogFormatter forwarding to app and writing locally
// with next.
func NewLogFormatter(app *newrelic.Application, next logrus.Formatter) *LogFormatter {
	return &LogFormatter{
		app:  app,
		next: next,
	}
}

// Format implements logrus.Formatter.Format
func (f *LogFormatter) Format(e *logrus.Entry) ([]byte, error) {
	formatted, err := f.next.Format(e)
	if err != nil {
		return nil, err
	}

	logData := newrelic.LogData{
		Severity: e.Level.String(),
		Message:  forwardedMessage(e),
	}

	var source newrelic.EnricherOption
	if txn := transactionFromEntry(e); txn != nil {
		txn.RecordLog(logData)
		source = newrelic.FromTxn(txn)
	} else {
		f.app.RecordLog(logData)
		source = newrelic.FromApp(f.app)
	}

	b := bytes.NewBuffer(bytes.TrimRight(formatted, "\n"))
	if err := newrelic.EnrichLog(b, source); err != nil {
		return nil, err
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}

func transactionFromEntry(e *logrus.Entry) *newrelic.Transaction {
	if e.Context == nil {
		return nil
	}
	return newrelic.FromContext(e.Context)
}

// forwardedMessage flattens an entry into a single line, since New Relic only
// accepts a message and severity per log record. Field keys are sorted so
// identical entries produce identical messages.
func forwardedMessage(e *logrus.Entry) string {
	if len(e.Data) == 0 {
		return e.Message
	}

	errString := "<nil>"
	keys := make([]string, 0, len(e.Data))
	for k, v := range e.Data {
		if k == logrus.ErrorKey {
			if err, ok := v.(error); ok {
				errString = fmt.Sprintf("%q", err.Error())
			}
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var data bytes.Buffer
	data.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			data.WriteByte(',')
		}
		key, _ := json.Marshal(k)
		value, err := json.Marshal(e.Data[k])
		if err != nil {
			value, _ = json.Marshal(fmt.Sprint(e.Data[k]))
		}
		data.Write(key)
		data.WriteByte(':')
		data.Write(value)
	}
	data.WriteByte('}')

	return fmt.Sprintf("message=%q, error=%s, data=%s", e.Message, errString, data.String())
}
