package reload

import (
	"fmt"
	"strconv"
)

// DefaultPath is where the Hub is usually mounted.
const DefaultPath = "/_hxssr/reload"

// Script returns the development client snippet for a page rendered at
// generation gen. It reloads the page when the hxssr:reload event fires
// (sent in HX-Trigger) or when the hub at path reports a newer generation,
// and reconnects with backoff when the hub goes away.
func Script(path string, gen uint64) string {
	if path == "" {
		path = DefaultPath
	}
	return fmt.Sprintf(scriptTemplate, strconv.Quote(path), gen)
}

const scriptTemplate = `<script>
(function() {
    'use strict';
    var path = %s;
    var generation = %d;
    var delay = 250;

    document.addEventListener('hxssr:reload', function() {
        location.reload();
    });

    function connect() {
        var protocol = location.protocol === 'https:' ? 'wss:' : 'ws:';
        var ws = new WebSocket(protocol + '//' + location.host + path + '?generation=' + generation);
        ws.onopen = function() { delay = 250; };
        ws.onmessage = function(e) {
            var msg;
            try { msg = JSON.parse(e.data); } catch (err) { return; }
            if (msg.type === 'reload' && msg.generation > generation) {
                location.reload();
            }
        };
        ws.onclose = function() {
            setTimeout(connect, delay);
            delay = Math.min(delay * 2, 5000);
        };
    }

    if (window.WebSocket) {
        connect();
    }
})();
</script>`
