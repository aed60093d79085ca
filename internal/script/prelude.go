package script

import "strings"

const appPlaceholder = "{{APP}}"

// prelude holds the handlers inlined into every generated script. The
// serializers echo dates as ISO 8601 local timestamps built from date
// components, so the decoder never depends on the user's date format.
const prelude = `on replaceText_v(source_v, find_v, replacement_v)
	set saved_v to AppleScript's text item delimiters
	set AppleScript's text item delimiters to find_v
	set parts_v to text items of source_v
	set AppleScript's text item delimiters to replacement_v
	set joined_v to parts_v as text
	set AppleScript's text item delimiters to saved_v
	return joined_v
end replaceText_v

on joinList_v(values_v, separator_v)
	set saved_v to AppleScript's text item delimiters
	set AppleScript's text item delimiters to separator_v
	set joined_v to values_v as text
	set AppleScript's text item delimiters to saved_v
	return joined_v
end joinList_v

on hex2_v(number_v)
	set digits_v to "0123456789abcdef"
	return (character ((number_v div 16) + 1) of digits_v) & (character ((number_v mod 16) + 1) of digits_v)
end hex2_v

on jsonString_v(value_v)
	if value_v is missing value then return "null"
	set escaped_v to my replaceText_v(value_v as text, "\\", "\\\\")
	set escaped_v to my replaceText_v(escaped_v, "\"", "\\\"")
	set escaped_v to my replaceText_v(escaped_v, linefeed, "\\n")
	set escaped_v to my replaceText_v(escaped_v, return, "\\r")
	set escaped_v to my replaceText_v(escaped_v, tab, "\\t")
	repeat with code_v from 0 to 31
		set control_v to character id code_v
		if escaped_v contains control_v then
			set escaped_v to my replaceText_v(escaped_v, control_v, "\\u00" & my hex2_v(code_v))
		end if
	end repeat
	return "\"" & escaped_v & "\""
end jsonString_v

on jsonBool_v(flag_v)
	if flag_v is true then return "true"
	return "false"
end jsonBool_v

on jsonNumber_v(number_v)
	if number_v is missing value then return "null"
	return number_v as text
end jsonNumber_v

on pad2_v(number_v)
	set digits_v to number_v as text
	if (count of digits_v) < 2 then set digits_v to "0" & digits_v
	return digits_v
end pad2_v

on jsonDate_v(date_v)
	if date_v is missing value then return "null"
	set year_v to (year of date_v) as text
	set month_v to my pad2_v((month of date_v) as integer)
	set day_v to my pad2_v(day of date_v)
	set clock_v to time of date_v
	set hour_v to my pad2_v(clock_v div 3600)
	set minute_v to my pad2_v((clock_v mod 3600) div 60)
	set second_v to my pad2_v(clock_v mod 60)
	return "\"" & year_v & "-" & month_v & "-" & day_v & "T" & hour_v & ":" & minute_v & ":" & second_v & "\""
end jsonDate_v

on makeDate_v(year_v, month_v, day_v, clock_v)
	set date_v to current date
	set day of date_v to 1
	set year of date_v to year_v
	set month of date_v to month_v
	set day of date_v to day_v
	set time of date_v to clock_v
	return date_v
end makeDate_v

on folderPath_v(folder_v)
	tell application {{APP}}
		set names_v to {name of folder_v}
		set current_v to container of folder_v
		repeat while class of current_v is folder
			set beginning of names_v to name of current_v
			set current_v to container of current_v
		end repeat
	end tell
	return my joinList_v(names_v, " > ")
end folderPath_v

on taskJSON_v(task_v)
	tell application {{APP}}
		set fields_v to {}
		set end of fields_v to "\"id\":" & my jsonString_v(id of task_v)
		set end of fields_v to "\"name\":" & my jsonString_v(name of task_v)
		set end of fields_v to "\"note\":" & my jsonString_v(note of task_v)
		set end of fields_v to "\"completed\":" & my jsonBool_v(completed of task_v)
		set end of fields_v to "\"dropped\":" & my jsonBool_v(dropped of task_v)
		set end of fields_v to "\"flagged\":" & my jsonBool_v(flagged of task_v)
		set end of fields_v to "\"due_date\":" & my jsonDate_v(due date of task_v)
		set end of fields_v to "\"defer_date\":" & my jsonDate_v(defer date of task_v)
		set end of fields_v to "\"completion_date\":" & my jsonDate_v(completion date of task_v)
		set end of fields_v to "\"creation_date\":" & my jsonDate_v(creation date of task_v)
		set end of fields_v to "\"modification_date\":" & my jsonDate_v(modification date of task_v)
		set end of fields_v to "\"estimated_minutes\":" & my jsonNumber_v(estimated minutes of task_v)
		set tagNames_v to {}
		repeat with tagRef_v in (tags of task_v)
			set end of tagNames_v to my jsonString_v(name of tagRef_v)
		end repeat
		set end of fields_v to "\"tags\":[" & my joinList_v(tagNames_v, ",") & "]"
		set project_v to containing project of task_v
		if project_v is missing value then
			set end of fields_v to "\"project_id\":null,\"project_name\":null"
		else
			set end of fields_v to "\"project_id\":" & my jsonString_v(id of project_v) & ",\"project_name\":" & my jsonString_v(name of project_v)
		end if
		set parent_v to parent task of task_v
		if parent_v is missing value then
			set end of fields_v to "\"parent_task_id\":null"
		else
			set end of fields_v to "\"parent_task_id\":" & my jsonString_v(id of parent_v)
		end if
		set end of fields_v to "\"in_inbox\":" & my jsonBool_v(in inbox of task_v)
		set rule_v to repetition rule of task_v
		if rule_v is missing value then
			set end of fields_v to "\"repetition_rule\":null"
		else
			set end of fields_v to "\"repetition_rule\":{\"recurrence\":" & my jsonString_v(recurrence of rule_v) & ",\"method\":" & my jsonString_v((repetition method of rule_v) as text) & "}"
		end if
		set end of fields_v to "\"has_children\":" & my jsonBool_v((count of tasks of task_v) > 0)
	end tell
	return "{" & my joinList_v(fields_v, ",") & "}"
end taskJSON_v

on projectJSON_v(project_v)
	tell application {{APP}}
		set fields_v to {}
		set end of fields_v to "\"id\":" & my jsonString_v(id of project_v)
		set end of fields_v to "\"name\":" & my jsonString_v(name of project_v)
		set end of fields_v to "\"note\":" & my jsonString_v(note of project_v)
		set end of fields_v to "\"status\":" & my jsonString_v((status of project_v) as text)
		set folder_v to folder of project_v
		if folder_v is missing value then
			set end of fields_v to "\"folder_id\":null,\"folder_path\":null"
		else
			set end of fields_v to "\"folder_id\":" & my jsonString_v(id of folder_v) & ",\"folder_path\":" & my jsonString_v(my folderPath_v(folder_v))
		end if
		set end of fields_v to "\"sequential\":" & my jsonBool_v(sequential of project_v)
		set end of fields_v to "\"flagged\":" & my jsonBool_v(flagged of project_v)
		set end of fields_v to "\"due_date\":" & my jsonDate_v(due date of project_v)
		set end of fields_v to "\"defer_date\":" & my jsonDate_v(defer date of project_v)
		set end of fields_v to "\"completion_date\":" & my jsonDate_v(completion date of project_v)
		set end of fields_v to "\"creation_date\":" & my jsonDate_v(creation date of project_v)
		set end of fields_v to "\"modification_date\":" & my jsonDate_v(modification date of project_v)
		set interval_v to review interval of project_v
		if interval_v is missing value then
			set end of fields_v to "\"review_interval\":null"
		else
			set end of fields_v to "\"review_interval\":{\"steps\":" & my jsonNumber_v(steps of interval_v) & ",\"unit\":" & my jsonString_v((unit of interval_v) as text) & "}"
		end if
		set end of fields_v to "\"last_review_date\":" & my jsonDate_v(last review date of project_v)
		set end of fields_v to "\"next_review_date\":" & my jsonDate_v(next review date of project_v)
		set end of fields_v to "\"task_count\":" & ((count of flattened tasks of project_v) as text)
		set end of fields_v to "\"remaining_count\":" & ((count of (flattened tasks of project_v whose completed is false)) as text)
		set end of fields_v to "\"available_count\":" & ((number of available tasks of project_v) as text)
		set end of fields_v to "\"completed_count\":" & ((count of (flattened tasks of project_v whose completed is true)) as text)
	end tell
	return "{" & my joinList_v(fields_v, ",") & "}"
end projectJSON_v

on folderJSON_v(folder_v)
	tell application {{APP}}
		set fields_v to {}
		set end of fields_v to "\"id\":" & my jsonString_v(id of folder_v)
		set end of fields_v to "\"name\":" & my jsonString_v(name of folder_v)
		set container_v to container of folder_v
		if class of container_v is folder then
			set end of fields_v to "\"parent_id\":" & my jsonString_v(id of container_v)
		else
			set end of fields_v to "\"parent_id\":null"
		end if
	end tell
	set end of fields_v to "\"path\":" & my jsonString_v(my folderPath_v(folder_v))
	return "{" & my joinList_v(fields_v, ",") & "}"
end folderJSON_v

on tagJSON_v(tag_v)
	tell application {{APP}}
		set fields_v to {}
		set end of fields_v to "\"id\":" & my jsonString_v(id of tag_v)
		set end of fields_v to "\"name\":" & my jsonString_v(name of tag_v)
		set container_v to container of tag_v
		if class of container_v is tag then
			set end of fields_v to "\"parent_id\":" & my jsonString_v(id of container_v)
		else
			set end of fields_v to "\"parent_id\":null"
		end if
	end tell
	return "{" & my joinList_v(fields_v, ",") & "}"
end tagJSON_v
`

// Prelude returns the inlined handlers bound to the application app.
func Prelude(app string) string {
	return strings.ReplaceAll(prelude, appPlaceholder, Quote(app))
}
