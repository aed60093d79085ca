package script

// DatabaseName is the read-only probe the safety guard runs before a
// mutation. It skips the prelude since it serializes nothing.
func DatabaseName(app string) string {
	w := &writer{}
	w.open("tell application %s", Quote(app))
	w.line("return name of default document")
	w.close("end tell")
	return w.String()
}

func ReadFolders(app string) string {
	return document(app, func(w *writer) {
		w.line("set out_v to {}")
		w.open("repeat with item_v in (flattened folders)")
		w.line("set end of out_v to my folderJSON_v(contents of item_v)")
		w.close("end repeat")
		w.line(`return "[" & my joinList_v(out_v, ",") & "]"`)
	})
}

func ReadTags(app string) string {
	return document(app, func(w *writer) {
		w.line("set out_v to {}")
		w.open("repeat with item_v in (flattened tags)")
		w.line("set end of out_v to my tagJSON_v(contents of item_v)")
		w.close("end repeat")
		w.line(`return "[" & my joinList_v(out_v, ",") & "]"`)
	})
}

// CreateFolder creates a folder at the top level or inside parentID.
func CreateFolder(app, name, parentID string) string {
	return document(app, func(w *writer) {
		props := properties{"name:" + Quote(name)}
		if parentID != "" {
			w.resolve("parent_v", "folder", parentID)
			w.line("set newFolder_v to make new folder at end of folders of parent_v with properties %s", props)
		} else {
			w.line("set newFolder_v to make new folder with properties %s", props)
		}
		w.line("return my folderJSON_v(newFolder_v)")
	})
}

// CreateTag creates a tag at the top level or nested under parentID.
func CreateTag(app, name, parentID string) string {
	return document(app, func(w *writer) {
		props := properties{"name:" + Quote(name)}
		if parentID != "" {
			w.resolve("parent_v", "tag", parentID)
			w.line("set newTag_v to make new tag at end of tags of parent_v with properties %s", props)
		} else {
			w.line("set newTag_v to make new tag with properties %s", props)
		}
		w.line("return my tagJSON_v(newTag_v)")
	})
}
