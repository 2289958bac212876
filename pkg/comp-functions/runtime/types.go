package runtime

// AppInfo defines application information
type AppInfo struct {
	Version, Commit, Date, AppName, AppLongName string
}
