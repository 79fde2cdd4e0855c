package httpapi

import (
	"net/http"
)

const dashboardHTML = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>Workspace Sync Console</title>
  <style>
    :root {
      --ink: #1b2430;
      --paper: #f6f7fb;
      --card: #ffffff;
      --line: #d9dde8;
      --accent: #3457d5;
      --danger: #c2483f;
      --muted: #67718a;
    }

    * { box-sizing: border-box; }

    body {
      margin: 0;
      font-family: "Segoe UI", "Avenir Next", sans-serif;
      color: var(--ink);
      background: var(--paper);
      min-height: 100vh;
      padding: 20px;
    }

    .shell { max-width: 960px; margin: 0 auto; display: grid; gap: 14px; }

    .bar {
      background: var(--card);
      border: 1px solid var(--line);
      border-radius: 12px;
      padding: 16px;
    }

    h1 { margin: 0; font-size: 1.4rem; }
    .sub { margin-top: 6px; color: var(--muted); font-size: 0.9rem; }

    .controls { display: grid; gap: 10px; grid-template-columns: 1.4fr auto auto; margin-top: 12px; }
    .controls input {
      width: 100%;
      border-radius: 8px;
      border: 1px solid var(--line);
      padding: 10px 12px;
      font-size: 0.92rem;
      outline: none;
    }
    .controls input:focus { border-color: var(--accent); }

    button {
      border: 0;
      border-radius: 8px;
      padding: 10px 14px;
      font-family: inherit;
      font-weight: 600;
      cursor: pointer;
    }
    .btn-primary { background: var(--accent); color: #ffffff; }
    .btn-danger { background: var(--danger); color: #ffffff; }

    table { width: 100%; border-collapse: collapse; font-size: 0.9rem; }
    th, td { text-align: left; padding: 8px 10px; border-bottom: 1px solid var(--line); }
    th { color: var(--muted); font-weight: 600; }
    .empty { color: var(--muted); padding: 18px 10px; }
    #feed { font-family: ui-monospace, monospace; font-size: 0.82rem; max-height: 220px; overflow-y: auto; }
    #feed div { padding: 2px 0; border-bottom: 1px dashed var(--line); }
  </style>
</head>
<body>
  <div class="shell">
    <div class="bar">
      <h1>Workspace Sync Console</h1>
      <div class="sub">Inspect a user's persisted workspace files and watch the live change feed.</div>
      <div class="controls">
        <input id="token" type="password" placeholder="Bearer token" />
        <button class="btn-primary" onclick="loadFiles()">Load workspace</button>
        <button class="btn-danger" onclick="clearWorkspace()">Clear workspace</button>
      </div>
    </div>
    <div class="bar">
      <table>
        <thead>
          <tr><th>ID</th><th>Filename</th><th>Language</th><th>Doc type</th><th>Origin</th><th>Size</th></tr>
        </thead>
        <tbody id="files"><tr><td colspan="6" class="empty">No workspace loaded.</td></tr></tbody>
      </table>
    </div>
    <div class="bar">
      <div class="sub">Live events</div>
      <div id="feed"></div>
    </div>
  </div>
  <script>
    let socket = null;

    function authHeaders() {
      return { "Authorization": "Bearer " + document.getElementById("token").value };
    }

    async function loadFiles() {
      const resp = await fetch("/api/workspace", { headers: authHeaders() });
      const body = await resp.json();
      const rows = document.getElementById("files");
      rows.innerHTML = "";
      if (!resp.ok) {
        rows.innerHTML = '<tr><td colspan="6" class="empty">' + (body.message || "request failed") + '</td></tr>';
        return;
      }
      if (!body.files.length) {
        rows.innerHTML = '<tr><td colspan="6" class="empty">Workspace is empty.</td></tr>';
      }
      for (const f of body.files) {
        const tr = document.createElement("tr");
        tr.innerHTML = "<td>" + f.id + "</td><td>" + f.filename + "</td><td>" + f.language +
          "</td><td>" + f.doc_type + "</td><td>" + f.origin + "</td><td>" + f.file_size_bytes + "</td>";
        rows.appendChild(tr);
      }
      openFeed();
    }

    async function clearWorkspace() {
      await fetch("/api/workspace", { method: "DELETE", headers: authHeaders() });
      loadFiles();
    }

    function openFeed() {
      if (socket) socket.close();
      const proto = location.protocol === "https:" ? "wss:" : "ws:";
      const token = encodeURIComponent(document.getElementById("token").value);
      socket = new WebSocket(proto + "//" + location.host + "/api/workspace/events?token=" + token);
      socket.onmessage = (msg) => {
        const line = document.createElement("div");
        line.textContent = msg.data;
        document.getElementById("feed").prepend(line);
      };
    }
  </script>
</body>
</html>`

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(dashboardHTML))
}
