package server

import "html/template"

type pageData struct {
	SessionID    string
	SelectedText string
	ImageURL     string
}

var chatPage = template.Must(template.New("chat").Parse(chatPageHTML))

const chatPageHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>ScreenQ Chat</title>
<style>
  * { box-sizing: border-box; margin: 0; padding: 0; }
  body {
    font-family: -apple-system, "Segoe UI", Roboto, sans-serif;
    background: #1e1e2e;
    color: #cdd6f4;
    height: 100vh;
    display: flex;
    flex-direction: column;
  }
  header {
    padding: 12px 20px;
    background: #181825;
    border-bottom: 1px solid #313244;
    display: flex;
    justify-content: space-between;
    align-items: center;
  }
  header h1 { font-size: 16px; font-weight: 600; }
  header .session { font-size: 12px; color: #6c7086; }
  #capture {
    padding: 10px 20px;
    background: #11111b;
    border-bottom: 1px solid #313244;
    font-size: 13px;
    max-height: 120px;
    overflow-y: auto;
  }
  #capture .label { color: #89b4fa; font-weight: 600; margin-right: 6px; }
  #capture a { color: #94e2d5; }
  #capture pre {
    white-space: pre-wrap;
    font-family: inherit;
    color: #a6adc8;
    margin-top: 4px;
  }
  #messages {
    flex: 1;
    overflow-y: auto;
    padding: 16px 20px;
    display: flex;
    flex-direction: column;
    gap: 10px;
  }
  .msg {
    max-width: 75%;
    padding: 10px 14px;
    border-radius: 12px;
    white-space: pre-wrap;
    line-height: 1.45;
    font-size: 14px;
  }
  .msg.user { align-self: flex-end; background: #89b4fa; color: #11111b; }
  .msg.assistant { align-self: flex-start; background: #313244; }
  .msg.error { align-self: flex-start; background: #45273a; color: #f38ba8; }
  .msg.system { align-self: center; color: #6c7086; font-size: 12px; background: none; }
  form {
    display: flex;
    gap: 8px;
    padding: 14px 20px;
    background: #181825;
    border-top: 1px solid #313244;
  }
  input[type=text] {
    flex: 1;
    padding: 10px 14px;
    border-radius: 8px;
    border: 1px solid #313244;
    background: #1e1e2e;
    color: #cdd6f4;
    font-size: 14px;
    outline: none;
  }
  input[type=text]:focus { border-color: #89b4fa; }
  button {
    padding: 10px 18px;
    border: none;
    border-radius: 8px;
    background: #89b4fa;
    color: #11111b;
    font-weight: 600;
    font-size: 14px;
    cursor: pointer;
  }
  button:disabled { opacity: 0.5; cursor: default; }
</style>
</head>
<body>
<header>
  <h1>ScreenQ</h1>
  <span class="session">session {{.SessionID}}</span>
</header>
<div id="capture">
  {{if .ImageURL}}<div><span class="label">Screenshot:</span><a href="{{.ImageURL}}" target="_blank" rel="noopener">{{.ImageURL}}</a></div>{{end}}
  {{if .SelectedText}}<div><span class="label">Selected text:</span><pre>{{.SelectedText}}</pre></div>{{end}}
  {{if and (not .ImageURL) (not .SelectedText)}}<div><span class="label">No captured context</span></div>{{end}}
</div>
<div id="messages">
  <div class="msg system">Ask about your screen, or type "bye" to end the session.</div>
</div>
<form id="chat-form">
  <input type="text" id="input" placeholder="Type a message..." autocomplete="off" autofocus>
  <button type="submit" id="send">Send</button>
</form>
<script>
const messages = [];
const messagesEl = document.getElementById("messages");
const inputEl = document.getElementById("input");
const sendEl = document.getElementById("send");
const formEl = document.getElementById("chat-form");

function addBubble(cls, text) {
  const div = document.createElement("div");
  div.className = "msg " + cls;
  div.textContent = text;
  messagesEl.appendChild(div);
  messagesEl.scrollTop = messagesEl.scrollHeight;
}

formEl.addEventListener("submit", async (e) => {
  e.preventDefault();
  const text = inputEl.value.trim();
  if (!text) return;

  inputEl.value = "";
  addBubble("user", text);
  messages.push({ role: "user", content: text });

  sendEl.disabled = true;
  try {
    const resp = await fetch("/api/chat", {
      method: "POST",
      headers: { "Content-Type": "application/json" },
      body: JSON.stringify({ messages }),
    });
    const data = await resp.json();

    if (data.success) {
      addBubble("assistant", data.response);
      messages.push({ role: "assistant", content: data.response });
    } else {
      addBubble("error", data.error || "request failed");
      messages.pop();
    }

    if (data.exit) {
      inputEl.disabled = true;
      sendEl.disabled = true;
      addBubble("system", "Session closed. You can close this tab.");
      return;
    }
  } catch (err) {
    addBubble("error", "could not reach the local endpoint: " + err);
    messages.pop();
  }
  sendEl.disabled = false;
  inputEl.focus();
});
</script>
</body>
</html>
`
