// Copyright Senckenberg - Leibniz Institution for Biodiversity and Earth System Research.
// SPDX-License-Identifier: Apache-2.0

package web

// dashboardTemplate is the embedded single-page dashboard.
const dashboardTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>BITS Annotation Dashboard</title>
<style>
body { font-family: sans-serif; margin: 2rem auto; max-width: 60rem; color: #222; }
h1 { font-size: 1.4rem; }
textarea { width: 100%; height: 6rem; font-family: monospace; }
pre { background: #f4f4f4; padding: 1rem; overflow-x: auto; white-space: pre-wrap; }
button { padding: 0.4rem 1rem; margin: 0.5rem 0.5rem 0.5rem 0; }
.error { color: #a00; }
</style>
</head>
<body>
<h1>BITS Annotation Dashboard</h1>
<p>Paste a cell value and annotate it against the configured terminology sources.</p>
<textarea id="cell" placeholder="e.g. metal oxide nanoparticles in soil samples"></textarea>
<div>
<button onclick="annotateCell()">Annotate</button>
<button onclick="loadTerminologies()">List terminologies</button>
<button onclick="loadStatistics()">Statistics</button>
</div>
<div id="error" class="error"></div>
<pre id="output"></pre>
<script>
function show(data) {
  document.getElementById('error').textContent = '';
  document.getElementById('output').textContent = JSON.stringify(data, null, 2);
}
function fail(message) {
  document.getElementById('error').textContent = message;
  document.getElementById('output').textContent = '';
}
async function annotateCell() {
  const cell = document.getElementById('cell').value;
  try {
    const resp = await fetch('/api/annotate', {
      method: 'POST',
      headers: {'Content-Type': 'application/json'},
      body: JSON.stringify({cell: cell})
    });
    const data = await resp.json();
    if (!resp.ok) { fail(data.error || resp.statusText); return; }
    show(data);
  } catch (err) { fail(err.message); }
}
async function loadTerminologies() {
  try {
    const resp = await fetch('/api/terminologies');
    if (!resp.ok) { fail(await resp.text()); return; }
    show(await resp.json());
  } catch (err) { fail(err.message); }
}
async function loadStatistics() {
  try {
    const resp = await fetch('/api/statistics');
    if (!resp.ok) { fail(await resp.text()); return; }
    show(await resp.json());
  } catch (err) { fail(err.message); }
}
</script>
</body>
</html>
`
