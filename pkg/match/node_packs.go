package match

var (
	npms = []string{"pug", "axios", "typescript", "mongodb", "lodash", "Mongoose", "redux",
		"jest", "rxjs", "fs-extra", "ua-parser-js", "koa", "express", "http-proxy", "react",
		"Fastify", "socket.io", "dotenv", "async", "mssql", "cross-env", "redis", "nedb", "webpack",
		"chalk", "commander", "moment", "request", "debug", "yargs", "uuid", "colors", "eslint"}

	maliciousNpms = map[string]string{
		"crossenv":        "cross-env",
		"cross-env.js":    "cross-env",
		"mongose":         "mongoose",
		"babelcli":        "babel-cli",
		"discordi.js":     "discord.js",
		"electorn":        "electron",
		"loadyaml":        "js-yaml",
		"jquery.js":       "jquery",
		"nodesass":        "node-sass",
		"node-opencv":     "opencv",
		"http-proxy.js":   "http-proxy",
		"proxy.js":        "proxy",
		"sqlite.js":       "sqlite",
		"ffmepg":          "ffmpeg",
		"gruntcli":        "grunt-cli",
		"nodemailer-js":   "nodemailer",
		"nodemssql":       "mssql",
		"node-tkinter":    "tkinter",
		"shadowsock":      "shadowsocks",
		"smb":             "samba",
		"openssl.js":      "openssl",
		"noderequest":     "request",
		"mysqljs":         "mysql",
		"d3.js":           "d3",
		"fabric-js":       "fabric",
		"node-sqlite":     "sqlite",
		"sqliter":         "sqlite",
		"sqlserver":       "mssql",
		"tkinter":         "tk",
		"jquery-rails.js": "jquery-rails",
	}

	npmList = &list{popular: npms, malicious: lower(maliciousNpms)}
)

func NpmMatch(pack string) Suspicion {
	return npmList.match(pack)
}
