package schema

// FirstYearTable is the name of the built-in table.
const FirstYearTable = "firstyear"

// FirstYear returns the built-in first-year student table.
// otp_verified (third from last) is the only flag column.
func FirstYear() *Table {
	return &Table{
		Name: FirstYearTable,
		Columns: []Column{
			{Name: "sex", Type: "VARCHAR(10)", Default: "NULL"},
			{Name: "s_no", Type: "SERIAL", PrimaryKey: true},
			{Name: "roll_no", Type: "VARCHAR(20)", NotNull: true},
			{Name: "enrollment_no", Type: "VARCHAR(20)", Default: "NULL"},
			{Name: "student_name", Type: "VARCHAR(100)", Default: "NULL"},
			{Name: "father_name", Type: "VARCHAR(100)", Default: "NULL"},
			{Name: "mother_name", Type: "VARCHAR(100)", Default: "NULL"},
			{Name: "branch", Type: "VARCHAR(200)", Default: "NULL"},
			{Name: "password", Type: "VARCHAR(20)", Default: "NULL"},
			{Name: "abc_id", Type: "VARCHAR(20)", NotNull: true},
			{Name: "admit_card_path", Type: "VARCHAR(255)", NotNull: true},
			{Name: "photo_path", Type: "VARCHAR(255)", NotNull: true},
			{Name: "mobile_no", Type: "VARCHAR(20)", Default: "NULL"},
			{Name: "student_emailid", Type: "VARCHAR(100)", Default: "NULL"},
			{Name: "student_password", Type: "VARCHAR(255)", Default: "NULL"},
			{Name: "otp_verified", Type: "BOOLEAN", Default: FalseLiteral, Transform: TransformBool},
			{Name: "student_group", Type: "VARCHAR(50)", Default: "NULL"},
			{Name: "student_section", Type: "VARCHAR(255)", Default: "NULL"},
		},
	}
}

// Builtin returns a built-in schema by table name.
func Builtin(name string) (*Table, bool) {
	switch name {
	case FirstYearTable:
		return FirstYear(), true
	}
	return nil, false
}
