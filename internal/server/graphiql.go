package server

// graphiqlPage is a minimal standalone GraphiQL-style page for interactive
// exploration in development. It posts directly to this endpoint and reads
// the ndjson response line by line, appending each snapshot as it arrives.
var graphiqlPage = []byte(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>GraphQL</title></head>
<body style="font-family: monospace; margin: 2em;">
<textarea id="query" rows="10" cols="80">{ __typename }</textarea><br>
<button onclick="run()">Run</button>
<pre id="out"></pre>
<script>
async function run() {
  const out = document.getElementById('out');
  out.textContent = '';
  const res = await fetch(location.pathname, {
    method: 'POST',
    headers: {'Content-Type': 'application/json'},
    body: JSON.stringify({query: document.getElementById('query').value}),
  });
  const reader = res.body.getReader();
  const decoder = new TextDecoder();
  let buf = '';
  for (;;) {
    const {done, value} = await reader.read();
    if (done) break;
    buf += decoder.decode(value, {stream: true});
    let nl;
    while ((nl = buf.indexOf('\n')) >= 0) {
      const line = buf.slice(0, nl);
      buf = buf.slice(nl + 1);
      if (line.trim() !== '') out.textContent += line + '\n';
    }
  }
}
</script>
</body>
</html>
`)
