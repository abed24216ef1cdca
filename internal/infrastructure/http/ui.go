package http

import "net/http"

// handleIndex renders the chat UI. Each page load starts its own session.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(indexHTML))
}

const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Store Insights</title>
    <script src="https://cdn.jsdelivr.net/npm/marked@12/marked.min.js"></script>
    <style>
        body { font-family: system-ui, sans-serif; margin: 0; background: #f6f6f4; color: #222; }
        .container { max-width: 860px; margin: 0 auto; padding: 24px; }
        header h1 { margin: 0 0 4px; }
        .subtitle { color: #666; margin: 0 0 16px; }
        #chat-container { background: #fff; border-radius: 8px; height: 65vh; overflow-y: auto; padding: 16px; }
        .message { margin: 10px 0; padding: 10px 14px; border-radius: 8px; }
        .message.user { background: #e8f0fe; margin-left: 20%; }
        .message.assistant { background: #f1f1ef; margin-right: 10%; }
        .message.assistant table { border-collapse: collapse; margin: 8px 0; }
        .message.assistant th, .message.assistant td { border: 1px solid #ccc; padding: 4px 8px; }
        .error { color: #b00020; }
        form { display: flex; gap: 8px; margin-top: 12px; }
        #query-input { flex: 1; padding: 10px; font-size: 15px; }
        button { padding: 10px 18px; }
    </style>
</head>
<body>
    <div class="container">
        <header>
            <h1>Store Insights</h1>
            <p class="subtitle">Ask about your restaurants. Separate several questions with ? or ;</p>
        </header>

        <main>
            <div id="chat-container">
                <div id="messages"></div>
            </div>

            <form id="query-form" onsubmit="sendQuery(event)">
                <input type="text" id="query-input" name="message" placeholder="Which store had the highest net sales?" autocomplete="off" required>
                <button type="submit" id="send-btn">Send</button>
            </form>
        </main>
    </div>

    <script>
        let sessionId = null;

        async function ensureSession() {
            if (sessionId) return sessionId;
            const res = await fetch('/api/sessions', { method: 'POST' });
            const body = await res.json();
            if (!res.ok) throw new Error(body.error || res.statusText);
            sessionId = body.session_id;
            return sessionId;
        }

        function render(text) {
            if (window.marked) return marked.parse(text);
            return '<pre>' + escapeHtml(text) + '</pre>';
        }

        async function sendQuery(e) {
            e.preventDefault();
            const input = document.getElementById('query-input');
            const messages = document.getElementById('messages');
            const container = document.getElementById('chat-container');
            const query = input.value.trim();
            if (!query) return;

            messages.innerHTML += '<div class="message user">' + escapeHtml(query) + '</div>';
            const responseEl = document.createElement('div');
            responseEl.className = 'message assistant';
            responseEl.textContent = 'Thinking...';
            messages.appendChild(responseEl);
            input.value = '';
            container.scrollTop = container.scrollHeight;

            try {
                const id = await ensureSession();
                const res = await fetch('/api/sessions/' + id + '/messages', {
                    method: 'POST',
                    headers: { 'Content-Type': 'application/json' },
                    body: JSON.stringify({ message: query })
                });
                const body = await res.json();
                if (res.status === 404) sessionId = null;
                if (!res.ok) throw new Error(body.error || res.statusText);
                responseEl.innerHTML = render(body.response);
            } catch (err) {
                responseEl.innerHTML = '<span class="error">' + escapeHtml(err.message) + '</span>';
            }
            container.scrollTop = container.scrollHeight;
        }

        window.addEventListener('beforeunload', function () {
            if (sessionId) fetch('/api/sessions/' + sessionId, { method: 'DELETE', keepalive: true });
        });

        function escapeHtml(text) {
            const div = document.createElement('div');
            div.textContent = text;
            return div.innerHTML;
        }
    </script>
</body>
</html>`
