package catalog

import "github.com/kjstillabower/portfolio-service/internal/models"

var defaultProjects = []models.Project{
	{
		ID:    "desktop-utility",
		Title: "Multi-Functional Desktop Utility",
		Blurb: "Windows desktop app with Lotto Max/649, IP Validator, currency/temp conversion, calculator; heavy file I/O and regex.",
		Tech:  []string{"C#", ".NET", "WinForms", "OOP", "Regex", "File I/O"},
	},
	{
		ID:    "remax-admin",
		Title: "Remax Administration System",
		Blurb: "3-tier real-estate admin: employees, clients, houses; ADO.NET CRUD; role-based access; themed MDI UI.",
		Tech:  []string{"C#", "WinForms", "ADO.NET", "OOP", "Access"},
	},
	{
		ID:    "parcelpro",
		Title: "Parcel Inventory System Pro (Curiorio)",
		Blurb: "JSON-driven parcel tracking & inventory; auth, CRUD, responsive Tailwind, animations.",
		Tech:  []string{"Java 17", "Jakarta Servlet 6", "JSTL 3", "Tomcat 10", "Tailwind", "Maven"},
	},
	{
		ID:    "retechx",
		Title: "ReTechX – Used Electronics Marketplace",
		Blurb: "Full-stack marketplace: listings, condition-based pricing, secure transactions, pickup booking, search/filter.",
		Tech:  []string{"PHP", "MySQL", "HTML", "CSS", "JavaScript", "XAMPP", "Tailwind"},
	},
	{
		ID:    "colortone",
		Title: "ColorTone – Smart Outfit Color Advisor (iOS)",
		Blurb: "AI fashion assistant: suggests outfit colors from skin tone + weather; ResNet-18 (87%) → CoreML; AR try-on (planned).",
		Tech:  []string{"Swift", "UIKit", "CoreML", "ARKit (planned)", "PyTorch", "OpenWeather"},
	},
	{
		ID:    "flask-auth",
		Title: "Flask Authentication & Authorization",
		Blurb: "Secure auth with hashed passwords, sessions, route protection; planned JWT/OAuth.",
		Tech:  []string{"Flask", "PostgreSQL", "Flask-Session", "bcrypt", "HTML", "CSS"},
	},
	{
		ID:    "password-manager",
		Title: "Password Manager – Secure Credential Vault",
		Blurb: "Generates, encrypts (Fernet AES), stores, and retrieves passwords; tabbed Tkinter UI with search/delete.",
		Tech:  []string{"Python", "Tkinter", "SQLite3", "cryptography.fernet"},
		Links: models.ProjectLinks{GitHub: "https://github.com/Shaillaja/Password-Manager"},
	},
}

var defaultSkills = models.Skills{
	Frontend:  []string{"HTML", "CSS", "JavaScript", "Tailwind", "React (basics)"},
	Backend:   []string{"PHP", "Node.js (Express)", "Flask", "Java (Servlets)", "FastAPI (basics)"},
	Databases: []string{"MySQL", "PostgreSQL", "SQLite", "Amazon Aurora", "Access", "Firestore (basics)"},
	Tools:     []string{"Git/GitHub", "Docker (basics)", "Xcode", "Android Studio", "Talend", "Tableau"},
}
