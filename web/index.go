package web

// IndexTmpl html template for the start page
const IndexTmpl = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>resolvd</title>
</head>
<body>
<h1>resolvd</h1>
<p>Version: {{.Version}} ({{.BuildTime}})</p>
<ul>
{{range .Links}}<li><a href="{{.URL}}">{{.Title}}</a></li>
{{end}}</ul>
</body>
</html>
`
