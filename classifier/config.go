package classifier

// EntityType labels a gazetteer entry with the kind of named entity it is.
// Only these four types contribute to the entity sub-score.
type EntityType string

const (
	EntityOrganization EntityType = "organization"
	EntityProduct      EntityType = "product"
	EntityGPE          EntityType = "gpe"
	EntityTechnology   EntityType = "technology"
)

// Category pairs an incident category with its keyword list. Keywords are
// matched case-insensitively as substrings of the post text.
type Category struct {
	Name     string
	Keywords []string
}

// Entity is a recognized named entity in the gazetteer.
type Entity struct {
	Text string
	Type EntityType
}

// Config is the immutable classifier configuration: an ordered category set,
// a category-independent hashtag list, and the entity gazetteer. The slice
// order of Categories is the tie-break order: on equal top scores the first
// configured category wins.
type Config struct {
	Categories       []Category
	RelevantHashtags []string
	Entities         []Entity
}

// DefaultConfig returns the built-in incident taxonomy. Keyword lists cover
// Spanish and English since the ingest query accepts both languages.
func DefaultConfig() Config {
	return Config{
		Categories: []Category{
			{
				Name: "malware_ransomware",
				Keywords: []string{
					"malware", "ransomware", "ransom", "rescate", "encriptado", "encrypted",
					"decrypt", "desencriptar", "virus", "troyano", "trojan", "worm", "gusano",
					"botnet", "backdoor", "payload",
				},
			},
			{
				Name: "phishing_social_engineering",
				Keywords: []string{
					"phishing", "suplantación", "suplantacion", "fake", "falso",
					"scam", "estafa", "fraudulent", "fraudulento", "impersonation",
					"social engineering", "ingeniería social", "spam", "spear phishing",
				},
			},
			{
				Name: "data_breach_leaks",
				Keywords: []string{
					"breach", "brecha", "leak", "filtración", "filtracion",
					"exposed", "expuesto", "compromised", "comprometido", "stolen",
					"robo", "datos", "data", "database", "base de datos", "dump",
				},
			},
			{
				Name: "hacking_pentesting",
				Keywords: []string{
					"hacking", "hacker", "ethical hacking", "pentest", "penetration testing",
					"vulnerability", "vulnerabilidad", "exploit", "zero-day", "día cero",
					"bug bounty", "bugbounty", "red team", "blue team", "ctf", "reverse engineering",
				},
			},
			{
				Name: "network_security",
				Keywords: []string{
					"firewall", "ips", "ids", "siem", "network", "red", "packet",
					"traffic", "tráfico", "monitoring", "monitoreo", "vpn",
					"proxy", "dns", "ddos", "mitm", "man in the middle",
				},
			},
			{
				Name: "cloud_security",
				Keywords: []string{
					"cloud", "nube", "aws", "azure", "gcp", "kubernetes", "docker",
					"container", "contenedor", "serverless", "iaas", "paas", "saas",
					"cloud native", "misconfiguration", "misconfiguración",
				},
			},
			{
				Name: "identity_access",
				Keywords: []string{
					"authentication", "autenticación", "mfa", "2fa", "password",
					"contraseña", "identity", "identidad", "access control",
					"control de acceso", "privileged", "privilegiado", "zero trust",
				},
			},
			{
				Name: "threat_intelligence",
				Keywords: []string{
					"threat", "amenaza", "intelligence", "inteligencia", "ioc",
					"indicator", "indicador", "apt", "advanced persistent threat",
					"campaign", "campaña", "actor", "nation state", "estado nación",
				},
			},
			{
				Name: "compliance_privacy",
				Keywords: []string{
					"gdpr", "rgpd", "compliance", "cumplimiento", "privacy",
					"privacidad", "regulation", "regulación", "standard", "estándar",
					"iso27001", "pci", "hipaa", "audit", "auditoría",
				},
			},
		},
		RelevantHashtags: []string{
			"#ciberseguridad", "#cybersecurity", "#hacking", "#hacker", "#infosec",
			"#ethicalhacking", "#cybercrime", "#malware", "#ransomware", "#datasecurity",
			"#security", "#technology", "#programming", "#linux", "#cloudsecurity",
			"#networksecurity", "#dataprotection", "#cyberattack", "#phishing", "#bugbounty",
		},
		Entities: []Entity{
			{"microsoft", EntityOrganization},
			{"google", EntityOrganization},
			{"cisco", EntityOrganization},
			{"crowdstrike", EntityOrganization},
			{"kaspersky", EntityOrganization},
			{"mandiant", EntityOrganization},
			{"lockbit", EntityOrganization},
			{"fbi", EntityOrganization},
			{"cisa", EntityOrganization},
			{"interpol", EntityOrganization},
			{"europol", EntityOrganization},
			{"incibe", EntityOrganization},
			{"windows", EntityProduct},
			{"chrome", EntityProduct},
			{"android", EntityProduct},
			{"exchange", EntityProduct},
			{"fortigate", EntityProduct},
			{"openssl", EntityProduct},
			{"office 365", EntityProduct},
			{"russia", EntityGPE},
			{"rusia", EntityGPE},
			{"china", EntityGPE},
			{"ukraine", EntityGPE},
			{"ucrania", EntityGPE},
			{"iran", EntityGPE},
			{"north korea", EntityGPE},
			{"united states", EntityGPE},
			{"estados unidos", EntityGPE},
			{"ransomware", EntityTechnology},
			{"malware", EntityTechnology},
			{"botnet", EntityTechnology},
			{"kubernetes", EntityTechnology},
			{"docker", EntityTechnology},
			{"linux", EntityTechnology},
			{"blockchain", EntityTechnology},
			{"active directory", EntityTechnology},
		},
	}
}
