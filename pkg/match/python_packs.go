package match

var (
	pypis = []string{"requests", "Django", "Flask", "datadog", "numpy", "Pillow", "PyYAML", "PySocks",
		"Scrapy", "scipy", "Twisted", "torch", "torchvision", "pandas", "algoliasearch", "tornado",
		"pypcap", "semidbm", "signalfx", "cassandra-driver", "ShopifyAPI", "zoomeye",
		"distributed", "virtualenv", "selenium", "beautifulsoup4", "lxml", "pylint",
		"urllib3", "setuptools", "cryptography", "boto3", "colorama", "matplotlib"}

	maliciousPypis = map[string]string{
		"smi":              "pysmi",
		"smb":              "pysmb",
		"opencv":           "opencv-python",
		"python-mysql":     "PyMySQL",
		"python-ftp":       "pyftpdlib",
		"ascii2text":       "art",
		"zlibsrc":          "zlib",
		"browserdiv":       "pybrowsers",
		"colourama":        "colorama",
		"jeIlyfish":        "jellyfish",
		"python3-dateutil": "python-dateutil",
		"urlib3":           "urllib3",
	}

	pyList = &list{popular: pypis, malicious: lower(maliciousPypis)}
)

func PyMatch(pack string) Suspicion {
	return pyList.match(pack)
}
