package web

import "html/template"

const layoutHTML = `{{define "layout"}}<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}} · modpanel</title>
<style>
body{font-family:system-ui,sans-serif;background:#1e1f22;color:#dbdee1;max-width:720px;margin:40px auto;padding:0 16px}
a{color:#00a8fc}
.card{background:#2b2d31;border-radius:8px;padding:16px 20px;margin:12px 0}
.btn{display:inline-block;background:#5865f2;color:#fff;border:0;border-radius:4px;padding:8px 16px;text-decoration:none;cursor:pointer}
label{display:block;margin:6px 0}
input[type=text]{width:100%;padding:6px;background:#1e1f22;color:#dbdee1;border:1px solid #444;border-radius:4px}
header{display:flex;justify-content:space-between;align-items:center}
</style>
</head>
<body>
<header><h1>{{.Title}}</h1>{{if .User}}<span>{{.User.Username}} · <a href="/logout">Logout</a></span>{{end}}</header>
{{template "content" .}}
</body>
</html>{{end}}`

const loginHTML = `{{define "content"}}
<div class="card">
<p>Sign in with Discord to manage auto-delete settings for your servers.</p>
<a class="btn" href="/login">Login with Discord</a>
</div>
{{end}}`

const messageHTML = `{{define "content"}}
<div class="card">
<p>{{.Message}}</p>
{{if .Link}}<a href="{{.Link}}">{{.LinkText}}</a>{{end}}
</div>
{{end}}`

const guildsHTML = `{{define "content"}}
{{if .Guilds}}
<p>Servers where you are an administrator:</p>
{{range .Guilds}}
<div class="card"><a href="/dashboard?guild_id={{.ID}}">{{.Name}}</a></div>
{{end}}
{{else}}
<div class="card"><p>You are not an administrator of any server.</p></div>
{{end}}
{{end}}`

const settingsHTML = `{{define "content"}}
<p><a href="/dashboard">&larr; All servers</a></p>
<form method="POST" action="/save">
<input type="hidden" name="guild_id" value="{{.GuildID}}">
<div class="card">
<h3>Auto-delete channels</h3>
{{range .Channels}}
<label><input type="checkbox" name="channels" value="{{.ID}}"{{if .Checked}} checked{{end}}> #{{.Name}}</label>
{{else}}
<p>No text channels are visible to the bot.</p>
{{end}}
</div>
<div class="card">
<h3>Exemptions</h3>
<label><input type="checkbox" name="ignoreBots"{{if .IgnoreBots}} checked{{end}}> Ignore messages from bots</label>
<label><input type="checkbox" name="ignoreThreads"{{if .IgnoreThreads}} checked{{end}}> Ignore messages in threads</label>
<label>Ignored user IDs (comma separated)
<input type="text" name="ignoredUsers" value="{{.IgnoredUsers}}"></label>
</div>
<button class="btn" type="submit">Save</button>
</form>
{{end}}`

var pages = map[string]*template.Template{
	"login":    mustPage(loginHTML),
	"message":  mustPage(messageHTML),
	"guilds":   mustPage(guildsHTML),
	"settings": mustPage(settingsHTML),
}

func mustPage(content string) *template.Template {
	tmpl := template.Must(template.New("layout").Parse(layoutHTML))
	return template.Must(tmpl.Parse(content))
}
