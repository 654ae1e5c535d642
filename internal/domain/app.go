package domain

import (
	"fmt"
	"strings"
)

// AppProfile describes one application whose private state travels with a
// persona: where it lives on the device, how to launch it, and which
// paths are skipped when its state is archived.
type AppProfile struct {
	Name              string
	Package           string
	DataPath          string
	LaunchActivity    string
	CriticalFiles     []string
	ExcludeFromBackup []string
}

func (a AppProfile) LaunchComponent() string {
	return a.Package + "/" + a.LaunchActivity
}

var appProfiles = map[string]AppProfile{
	"naver": {
		Name:           "naver",
		Package:        "com.nhn.android.search",
		DataPath:       "/data/data/com.nhn.android.search",
		LaunchActivity: ".ui.SplashActivity",
		CriticalFiles: []string{
			"shared_prefs/cookies.xml",
			"shared_prefs/NID_SES.xml",
			"shared_prefs/NNB.xml",
			"shared_prefs/login_prefs.xml",
		},
		ExcludeFromBackup: []string{
			"cache/*",
			"code_cache/*",
			"no_backup/*",
		},
	},
	"chrome": {
		Name:           "chrome",
		Package:        "com.android.chrome",
		DataPath:       "/data/data/com.android.chrome",
		LaunchActivity: "com.google.android.apps.chrome.Main",
		CriticalFiles: []string{
			"app_chrome/Default/Cookies",
			"app_chrome/Default/Login Data",
			"app_chrome/Default/Web Data",
		},
		ExcludeFromBackup: []string{
			"cache/*",
			"app_chrome/Default/Cache/*",
			"app_chrome/Default/Code Cache/*",
		},
	},
	"naver_map": {
		Name:           "naver_map",
		Package:        "com.nhn.android.nmap",
		DataPath:       "/data/data/com.nhn.android.nmap",
		LaunchActivity: ".MainActivity",
		CriticalFiles: []string{
			"shared_prefs/",
		},
		ExcludeFromBackup: []string{
			"cache/*",
			"code_cache/*",
		},
	},
}

func AppProfileByName(name string) (AppProfile, error) {
	profile, ok := appProfiles[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return AppProfile{}, fmt.Errorf("%w: %q (available: %s)", ErrUnknownApp, name, strings.Join(AppProfileNames(), ", "))
	}
	return profile, nil
}

func AppProfileNames() []string {
	names := make([]string, 0, len(appProfiles))
	for name := range appProfiles {
		names = append(names, name)
	}
	return names
}

// DefaultApps is the set of profiles a transfer covers when the caller
// does not name any.
func DefaultApps() []AppProfile {
	return []AppProfile{appProfiles["naver"]}
}
