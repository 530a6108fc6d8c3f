package pprint

import "fmt"

// PrintBanner prints the buildctl banner with version and tagline.
func PrintBanner(version, buildDate string) {
	lines := []string{
		StylePrimary.Render(" _         _ _    _      _   _ "),
		StylePrimary.Render("| |__ _  _(_) |__| |__ _| |_| |"),
		StyleAccent.Render("| '_ \\ || | | / _` / _|  _| |"),
		StyleMuted.Render("|_.__/\\_,_|_|_\\__,_\\__|\\__|_|"),
	}

	fmt.Fprintln(Stdout)
	for _, l := range lines {
		fmt.Fprintln(Stdout, l)
	}
	fmt.Fprintln(Stdout)

	versionStr := StyleAccent.Render("  " + version)
	if buildDate != "" {
		versionStr += StyleMuted.Render("  built " + buildDate)
	}
	fmt.Fprintln(Stdout, StyleMuted.Render("  Bootstrap and drive the native build tool"))
	fmt.Fprintln(Stdout, versionStr)
	fmt.Fprintln(Stdout)
}
