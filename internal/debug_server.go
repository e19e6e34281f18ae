// Package internal carries operator-facing plumbing that no other
// module should depend on for behavior: the badger inspection endpoint.
package internal

import (
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"runtime"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/shirou/gopsutil/mem"
)

const inspectPage = `<!DOCTYPE html>
<html>
<head><title>chat-relay inspect</title>
<style>
body { font-family: monospace; margin: 2em; }
table { border-collapse: collapse; }
td, th { border: 1px solid #999; padding: 4px 10px; text-align: left; }
.stats { margin-bottom: 1.5em; color: #555; }
</style>
</head>
<body>
<h2>Store inspection, prefix {{.Prefix}}</h2>
<div class="stats">{{range $k, $v := .Stats}}{{$k}}={{$v}} {{end}}</div>
<table>
<tr><th>Key</th><th>Namespace</th><th>Entity</th><th>Value</th></tr>
{{range .Items}}
<tr><td>{{.Key}}</td><td>{{.Namespace}}</td><td>{{.EntityID}}</td><td>{{.Detail}}</td></tr>
{{end}}
</table>
</body>
</html>`

type InspectRow struct {
	Key       string
	Namespace string
	EntityID  string
	Detail    string
}

type RowMapper func(key string, val []byte) InspectRow

type PageData struct {
	Prefix string
	Items  []InspectRow
	Stats  map[string]any
}

// StartDebugServer exposes a read-only view of the badger store plus a
// few process stats. Development aid; keep it off in production.
func StartDebugServer(db *badger.DB, port int, mapper RowMapper) {
	mux := http.NewServeMux()
	tmpl := template.Must(template.New("inspect").Parse(inspectPage))

	if mapper == nil {
		mapper = MessageMapper
	}

	mux.HandleFunc("/inspect", func(w http.ResponseWriter, r *http.Request) {
		prefix := r.URL.Query().Get("prefix")
		if prefix == "" {
			prefix = "msg:"
		}

		data := PageData{Prefix: prefix, Stats: processStats()}

		_ = db.View(func(txn *badger.Txn) error {
			it := txn.NewIterator(badger.DefaultIteratorOptions)
			defer it.Close()
			for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
				item := it.Item()
				_ = item.Value(func(val []byte) error {
					data.Items = append(data.Items, mapper(string(item.Key()), val))
					return nil
				})
			}
			return nil
		})

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = tmpl.Execute(w, data)
	})

	go func() {
		_ = http.ListenAndServe(fmt.Sprintf("127.0.0.1:%d", port), mux)
	}()
}

// MessageMapper renders "msg:{channel}:{id}" rows with their decoded
// JSON payload.
func MessageMapper(key string, val []byte) InspectRow {
	row := InspectRow{Key: key, Namespace: "default", EntityID: "--------"}

	parts := strings.SplitN(key, ":", 3)
	if len(parts) == 3 {
		row.Namespace = parts[1]
		row.EntityID = strings.TrimLeft(parts[2], "0")
		if row.EntityID == "" {
			row.EntityID = "0"
		}
	}

	var pretty map[string]any
	if err := json.Unmarshal(val, &pretty); err == nil {
		row.Detail = fmt.Sprintf("%v", pretty)
	} else {
		row.Detail = fmt.Sprintf("%d raw bytes", len(val))
	}
	return row
}

func processStats() map[string]any {
	stats := map[string]any{"goroutines": runtime.NumGoroutine()}
	if vm, err := mem.VirtualMemory(); err == nil {
		stats["mem_used_percent"] = fmt.Sprintf("%.1f", vm.UsedPercent)
	}
	return stats
}
