package adbus

import "testing"

func TestValidateSignature(t *testing.T) {
	tests := []struct {
		sig     string
		wantErr bool
	}{
		{"", true},
		{"y", false},
		{"s", false},
		{"as", false},
		{"a(si)", false},
		{"a{sv}", false},
		{"(ii)", false},
		{"()", true},
		{"a", true},
		{"a{s}", true},
		{"{sv}", true},
		{"(si", true},
		{"yyyyuu", false},
		{"v", false},
	}

	for _, tc := range tests {
		t.Run(tc.sig, func(t *testing.T) {
			err := ValidateSignature(tc.sig)
			if (err != nil) != tc.wantErr {
				t.Errorf("ValidateSignature(%q) error = %v, wantErr %v", tc.sig, err, tc.wantErr)
			}
		})
	}
}

func TestPadding(t *testing.T) {
	tests := []struct {
		offset, align, want int
	}{
		{0, 4, 0},
		{1, 4, 3},
		{4, 4, 0},
		{5, 8, 3},
		{0, 1, 0},
		{3, 1, 0},
	}
	for _, tc := range tests {
		got := padding(tc.offset, tc.align)
		if got != tc.want {
			t.Errorf("padding(%d, %d) = %d, want %d", tc.offset, tc.align, got, tc.want)
		}
	}
}

func TestValidateInterfaceName(t *testing.T) {
	tests := []struct {
		name    string
		wantErr bool
	}{
		{"org.freedesktop.DBus", false},
		{"com.example.Foo", false},
		{"NoDot", true},
		{"", true},
		{"org.1foo.Bar", true},
		{"org..Bar", true},
		{"org.freedesktop.DBus_Test", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateInterfaceName(tc.name)
			if (err != nil) != tc.wantErr {
				t.Errorf("ValidateInterfaceName(%q) error = %v, wantErr %v", tc.name, err, tc.wantErr)
			}
		})
	}
}

func TestValidateMemberName(t *testing.T) {
	tests := []struct {
		name    string
		wantErr bool
	}{
		{"Ping", false},
		{"GetAll", false},
		{"Has.Dot", true},
		{"", true},
		{"1Invalid", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateMemberName(tc.name)
			if (err != nil) != tc.wantErr {
				t.Errorf("ValidateMemberName(%q) error = %v, wantErr %v", tc.name, err, tc.wantErr)
			}
		})
	}
}

func TestValidateObjectPath(t *testing.T) {
	tests := []struct {
		path    string
		wantErr bool
	}{
		{"/", false},
		{"/org/freedesktop/DBus", false},
		{"", true},
		{"no/leading/slash", true},
		{"/trailing/", true},
		{"/double//slash", true},
		{"/bad-char!", true},
	}
	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			err := ValidateObjectPath(tc.path)
			if (err != nil) != tc.wantErr {
				t.Errorf("ValidateObjectPath(%q) error = %v, wantErr %v", tc.path, err, tc.wantErr)
			}
		})
	}
}
