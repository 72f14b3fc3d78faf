package refdata

// Compiled-in reference tables. Custodian codes and consortium memberships
// change rarely enough that a code update is the deployment mechanism.

var authorityNames = map[string]string{
	"650": "Bromsgrove",
	"655": "Malvern Hills",
	"660": "Redditch",
	"665": "Worcester",
	"670": "Wychavon",
	"675": "Wyre Forest",
	"835": "Dorset",
	"836": "Bournemouth, Christchurch and Poole",
	"935": "Cambridgeshire",
	"940": "Peterborough",
	"1005": "Blackburn with Darwen",
	"1010": "Blackpool",
	"1445": "Cheshire East",
	"1450": "Cheshire West and Chester",
	"2205": "Greenwich",
	"2210": "Hackney",
	"2315": "Barking and Dagenham",
	"2320": "Barnet",
	"3005": "Bolton",
	"3010": "Bury",
}

var consortiumNames = map[string]string{
	"C_0005": "Worcestershire Districts Consortium",
	"C_0008": "South Worcestershire Consortium",
	"C_0011": "Cambridgeshire and Peterborough Consortium",
}

var consortiumMembers = map[string][]string{
	"C_0005": {"650", "670", "675"},
	"C_0008": {"660", "665"},
	"C_0011": {"935", "940"},
}

// Default returns the registry over the compiled-in tables. The registry is
// rebuilt per call; callers hold one instance for the process lifetime.
func Default() *Registry {
	r, err := NewRegistry(authorityNames, consortiumNames, consortiumMembers)
	if err != nil {
		// The tables above are constants; a failure here is a build defect.
		panic(err)
	}
	return r
}
