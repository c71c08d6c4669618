package awsconf

import (
	"context"
	"testing"
)

func TestParseS3Path(t *testing.T) {
	tests := []struct {
		path       string
		wantBucket string
		wantKey    string
		wantErr    bool
	}{
		{"s3://bucket/exports/databases/", "bucket", "exports/databases/", false},
		{"s3://bucket", "bucket", "", false},
		{"s3://bucket/part-00000.json", "bucket", "part-00000.json", false},
		{"/local/path", "", "", true},
		{"s3:///key", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			bucket, key, err := ParseS3Path(tt.path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseS3Path() error = %v, wantErr %v", err, tt.wantErr)
			}
			if bucket != tt.wantBucket || key != tt.wantKey {
				t.Errorf("ParseS3Path() = (%q, %q), want (%q, %q)", bucket, key, tt.wantBucket, tt.wantKey)
			}
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"default region", Config{Region: "us-east-1"}, false},
		{"unknown region", Config{Region: "moon-1"}, true},
		{"custom endpoint skips region check", Config{Region: "local", Endpoint: "http://localhost:9000"}, false},
		{"half static credentials", Config{Region: "eu-west-1", AccessKeyID: "AKIA"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_LoadStatic(t *testing.T) {
	cfg, err := Config{AccessKeyID: "AKIDEXAMPLE", SecretAccessKey: "secret"}.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Region != DefaultRegion {
		t.Errorf("Region = %q, want %q", cfg.Region, DefaultRegion)
	}

	creds, err := cfg.Credentials.Retrieve(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if creds.AccessKeyID != "AKIDEXAMPLE" {
		t.Errorf("AccessKeyID = %q", creds.AccessKeyID)
	}
}
